package broker

import (
	"testing"

	"github.com/decentchain/contracts-core/collab"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func acct(b byte) collab.AccountID {
	var a collab.AccountID
	a[0] = b
	return a
}

func TestPreDispatchWithdrawsFeeAndSetsPrice(t *testing.T) {
	currency := collab.NewMemCurrency(uint256.NewInt(1))
	weights := collab.NewMemWeightAccounting(1_000_000)
	signer := acct(1)
	currency.SetBalance(signer, uint256.NewInt(10_000))

	b := New(currency, weights, uint256.NewInt(2), acct(99))
	quote, err := b.PreDispatch(signer, 1000)
	require.NoError(t, err)
	require.True(t, quote.Fee.Eq(uint256.NewInt(2000)))
	require.True(t, quote.GasPrice.Eq(uint256.NewInt(2)))
	require.True(t, currency.Balance(signer).Eq(uint256.NewInt(8000)))
	require.True(t, b.Transient().IsSet())
}

func TestPreDispatchRejectsExhaustedBlockWeight(t *testing.T) {
	currency := collab.NewMemCurrency(uint256.NewInt(1))
	weights := collab.NewMemWeightAccounting(100)
	weights.Register(50)
	signer := acct(1)
	currency.SetBalance(signer, uint256.NewInt(10_000))

	b := New(currency, weights, uint256.NewInt(1), acct(99))
	_, err := b.PreDispatch(signer, 51)
	require.ErrorIs(t, err, ErrExhaustsResources)
}

func TestPreDispatchRejectsInsufficientBalance(t *testing.T) {
	currency := collab.NewMemCurrency(uint256.NewInt(1))
	weights := collab.NewMemWeightAccounting(1_000_000)
	signer := acct(1)
	currency.SetBalance(signer, uint256.NewInt(10))

	b := New(currency, weights, uint256.NewInt(2), acct(99))
	_, err := b.PreDispatch(signer, 1000)
	require.ErrorIs(t, err, ErrPayment)
}

func TestGasPriceFloorsAtOne(t *testing.T) {
	currency := collab.NewMemCurrency(uint256.NewInt(1))
	weights := collab.NewMemWeightAccounting(1_000_000)
	signer := acct(1)
	currency.SetBalance(signer, uint256.NewInt(10_000))

	// feePerWeight=0 makes fee=0, so price would underflow to 0 without the floor.
	b := New(currency, weights, uint256.NewInt(0), acct(99))
	quote, err := b.PreDispatch(signer, 1000)
	require.NoError(t, err)
	require.True(t, quote.GasPrice.Eq(uint256.NewInt(1)))
}

func TestPostDispatchRefundsAndRegistersWeight(t *testing.T) {
	currency := collab.NewMemCurrency(uint256.NewInt(1))
	weights := collab.NewMemWeightAccounting(1_000_000)
	signer := acct(1)
	currency.SetBalance(signer, uint256.NewInt(10_000))

	b := New(currency, weights, uint256.NewInt(2), acct(99))
	quote, err := b.PreDispatch(signer, 1000)
	require.NoError(t, err)

	b.PostDispatch(signer, quote, 400) // spent 600 of 1000
	require.True(t, currency.Balance(signer).Eq(uint256.NewInt(10_000-2000+800)))
	require.True(t, currency.Balance(acct(99)).Eq(uint256.NewInt(1200))) // net fee
	require.Equal(t, uint64(600), weights.Used())
	require.True(t, b.Transient().IsSet())
	b.Transient().Clear()
	require.False(t, b.Transient().IsSet())
}
