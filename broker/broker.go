// Package broker is the Pre-Dispatch Gas Broker (C8): it converts a
// transaction's requested gas into a fee withdrawal, fixes the effective
// gas price for the duration of the call, and refunds unspent fuel after
// dispatch (spec §4.8).
//
// Grounded directly on core/state_transition.go's buyGas/refundGas pair:
// buyGas converts msg.Gas()*gasPrice into a balance check and withdrawal
// before execution, gp.SubGas reserves block-level gas, and refundGas
// credits back gasRemaining*gasPrice and returns the reservation to the
// block's gas pool afterward. Broker.PreDispatch/PostDispatch is that same
// shape, generalized from "gas price is a transaction field" to "gas price
// is computed from the withdrawn fee" (spec §4.8 step 3).
package broker

import (
	"fmt"

	"github.com/decentchain/contracts-core/collab"
	log "github.com/erigontech/erigon-lib/log/v3"
	"github.com/holiman/uint256"
)

// Transient mirrors spec §6's transient storage: GasPrice and
// GasUsageReport must be present only for the duration of one dispatchable
// and absent at every block boundary. PreDispatch and PostDispatch set it;
// contracts.Runtime.FinalizeBlock clears it on that runtime's broker.
type Transient struct {
	set      bool
	gasPrice *uint256.Int
	gasLeft  uint64
	gasSpent uint64
}

// Set installs the transient GasPrice/GasUsageReport values for the
// duration of one dispatchable.
func (t *Transient) Set(price *uint256.Int, left, spent uint64) {
	t.set = true
	t.gasPrice = price
	t.gasLeft = left
	t.gasSpent = spent
}

// Clear removes GasPrice/GasUsageReport, as required before block
// finalization (spec §6).
func (t *Transient) Clear() { *t = Transient{} }

// IsSet reports whether GasPrice/GasUsageReport currently hold a value.
func (t *Transient) IsSet() bool { return t.set }

// GasPrice returns the transient gas price, valid only while IsSet.
func (t *Transient) GasPrice() *uint256.Int { return t.gasPrice }

// Quote is the result of PreDispatch: the weight a transaction was granted,
// the fee withdrawn for it, and the gas price the executor must charge at
// (spec §4.8 steps 1-3).
type Quote struct {
	GasWeightLimit uint64
	Fee            *uint256.Int
	GasPrice       *uint256.Int
}

// Broker wires the currency collaborator, the block-weight ledger, and a
// fixed weight-to-fee conversion rate into the pre/post-dispatch protocol
// (spec §4.8).
type Broker struct {
	currency     collab.Currency
	weights      collab.WeightAccounting
	feePerWeight *uint256.Int
	sink         collab.AccountID

	transient Transient
}

// New builds a Broker. feePerWeight is the balance charged per unit of gas
// weight (weight_to_fee(w) = w * feePerWeight); sink is the account that
// receives the net fee (fee minus refund) after dispatch (spec §4.8 step 4's
// "gas-payment sink").
func New(currency collab.Currency, weights collab.WeightAccounting, feePerWeight *uint256.Int, sink collab.AccountID) *Broker {
	return &Broker{currency: currency, weights: weights, feePerWeight: feePerWeight, sink: sink}
}

// WeightToFee converts a quantity of gas weight into balance, at the
// broker's fixed conversion rate (spec §4.8 step 2).
func (b *Broker) WeightToFee(weight uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(weight), b.feePerWeight)
}

// PreDispatch runs spec §4.8 steps 1-3 for an incoming call/instantiate
// extrinsic: reject if the requested gas would exhaust the block's weight
// ceiling, withdraw the computed fee from signer, and fix the effective gas
// price (floored at 1 per SPEC_FULL.md's Open Question (a) decision).
func (b *Broker) PreDispatch(signer collab.AccountID, gasLimit uint64) (*Quote, error) {
	if gasLimit == 0 {
		return nil, fmt.Errorf("%w: zero gas limit", ErrExhaustsResources)
	}
	if b.weights.Used()+gasLimit > b.weights.Ceiling() {
		return nil, ErrExhaustsResources
	}

	fee := b.WeightToFee(gasLimit)
	if err := b.currency.Withdraw(signer, fee); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayment, err)
	}

	price := new(uint256.Int).Div(fee, uint256.NewInt(gasLimit))
	if price.IsZero() {
		price = uint256.NewInt(1)
		log.Debug("broker: gas price floored at 1", "signer", signer, "gasLimit", gasLimit, "fee", fee)
	}

	b.transient.Set(price, gasLimit, 0)
	return &Quote{GasWeightLimit: gasLimit, Fee: fee, GasPrice: price}, nil
}

// PostDispatch runs spec §4.8 step 4, unconditionally (a refund always runs
// regardless of outcome, spec §7): it reads spent/remaining gas, refunds
// the signer for gasLeft, routes the net imbalance to the fee sink, and
// registers the spent weight with the block-weight ledger. Callers must
// call Clear on the broker's Transient before block finalization.
func (b *Broker) PostDispatch(signer collab.AccountID, quote *Quote, gasLeft uint64) {
	spent := quote.GasWeightLimit - gasLeft
	refund := b.WeightToFee(gasLeft)
	b.currency.Deposit(signer, refund)

	net := new(uint256.Int).Sub(quote.Fee, refund)
	if !net.IsZero() {
		b.currency.Deposit(b.sink, net)
	}

	b.weights.Register(spent)
	b.transient.Set(quote.GasPrice, gasLeft, spent)
	log.Debug("broker: post-dispatch refund", "signer", signer, "gasLeft", gasLeft, "spent", spent, "refund", refund)
}

// Transient exposes the broker's GasPrice/GasUsageReport state so C9 can
// clear it before block finalization (spec §6).
func (b *Broker) Transient() *Transient { return &b.transient }
