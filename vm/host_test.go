package vm

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/gastype"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// fakeMemory is a flat byte buffer standing in for a wagon sandbox's linear
// memory, so host.go's charge/validate/act logic can be exercised without a
// live Wasm VM.
type fakeMemory struct {
	buf []byte
}

func newFakeMemory(size int) *fakeMemory { return &fakeMemory{buf: make([]byte, size)} }

func (f *fakeMemory) readMemory(ptr, length uint32) ([]byte, error) {
	if err := boundsCheck(len(f.buf), ptr, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, f.buf[ptr:ptr+length])
	return out, nil
}

func (f *fakeMemory) writeMemory(ptr uint32, data []byte) error {
	if err := boundsCheck(len(f.buf), ptr, uint32(len(data))); err != nil {
		return err
	}
	copy(f.buf[ptr:ptr+uint32(len(data))], data)
	return nil
}

type fakeServices struct {
	storage map[[32]byte][]byte
	events  [][]byte

	callOutput         []byte
	instantiateOutput  []byte
	instantiateAccount collab.AccountID
}

func newFakeServices() *fakeServices {
	return &fakeServices{storage: make(map[[32]byte][]byte)}
}

func (s *fakeServices) GetStorage(key [32]byte) ([]byte, bool) { v, ok := s.storage[key]; return v, ok }
func (s *fakeServices) SetStorage(key [32]byte, value []byte) (int64, error) {
	old := len(s.storage[key])
	if value == nil {
		delete(s.storage, key)
	} else {
		s.storage[key] = value
	}
	return int64(len(value) - old), nil
}
func (s *fakeServices) Balance(collab.AccountID) (uint64, uint64) { return 0, 0 }
func (s *fakeServices) Transfer(collab.AccountID, uint64, uint64) error { return nil }
func (s *fakeServices) Call(collab.AccountID, uint64, uint64, []byte, uint64) ([]byte, Status, error) {
	return s.callOutput, StatusSuccess, nil
}
func (s *fakeServices) Instantiate(collab.CodeHash, uint64, uint64, []byte, uint64) (collab.AccountID, []byte, Status, error) {
	return s.instantiateAccount, s.instantiateOutput, StatusSuccess, nil
}
func (s *fakeServices) Terminate(collab.AccountID) error { return nil }
func (s *fakeServices) DepositEvent(topics [][32]byte, data []byte) error {
	s.events = append(s.events, data)
	return nil
}
func (s *fakeServices) RestoreTo(collab.AccountID, collab.CodeHash, uint64, [][32]byte) error {
	return nil
}
func (s *fakeServices) SetRentAllowance(uint64, bool) error { return nil }
func (s *fakeServices) Random(subject []byte) [32]byte { return [32]byte{0xAB} }
func (s *fakeServices) BlockNumber() uint64             { return 42 }
func (s *fakeServices) GasPrice() (uint64, uint64)      { return 0, 1 }
func (s *fakeServices) Println(string)                  {}

func newTestBridge(meterLimit uint64) (*hostBridge, *fakeMemory, *fakeServices) {
	sched := gastype.Default()
	meter := gastype.New(meterLimit, uint256.NewInt(1))
	svc := newFakeServices()
	hc := &HostContext{Meter: meter, Schedule: sched, Services: svc}
	mem := newFakeMemory(4096)
	return newHostBridge(hc, mem), mem, svc
}

func TestSealSetStorageThenGetStorageRoundTrip(t *testing.T) {
	b, mem, _ := newTestBridge(100000)
	fns := b.table()

	key := make([]byte, 32)
	key[0] = 9
	copy(mem.buf[0:32], key)
	copy(mem.buf[32:37], []byte("hello"))

	_, err := fns["seal_set_storage"]([]uint64{0, 32, 32, 5})
	require.NoError(t, err)

	rc, err := fns["seal_get_storage"]([]uint64{0, 32, 100})
	require.NoError(t, err)
	require.Equal(t, uint64(0), rc)
	require.Equal(t, "hello", string(mem.buf[100:105]))
}

func TestSealGetStorageMissingKeyReturnsNotFoundCode(t *testing.T) {
	b, mem, _ := newTestBridge(100000)
	fns := b.table()
	key := make([]byte, 32)
	copy(mem.buf[0:32], key)

	rc, err := fns["seal_get_storage"]([]uint64{0, 32, 100})
	require.NoError(t, err)
	require.Equal(t, uint64(1), rc)
}

func TestSealSetStorageRejectsOversizedValue(t *testing.T) {
	b, _, _ := newTestBridge(100000)
	fns := b.table()
	_, err := fns["seal_set_storage"]([]uint64{0, 32, 1000, uint64(gastype.Default().MaxValueSize) + 1})
	require.True(t, errors.Is(err, ErrValueTooLarge))
}

func TestHostFunctionOutOfGasIsTrapped(t *testing.T) {
	b, mem, _ := newTestBridge(1) // not enough for even the read cost on a 32-byte key
	fns := b.table()
	copy(mem.buf[0:32], make([]byte, 32))

	_, err := fns["seal_get_storage"]([]uint64{0, 32, 100})
	require.ErrorIs(t, err, errHostOutOfGas)
}

func TestSealDepositEventRejectsTooManyTopics(t *testing.T) {
	b, mem, _ := newTestBridge(100000)
	fns := b.table()
	sched := gastype.Default()
	topicsLen := (sched.MaxEventTopics + 1) * 32
	_, err := fns["seal_deposit_event"]([]uint64{0, uint64(topicsLen), 0, 0})
	var unused [32]byte
	_ = unused
	copy(mem.buf[0:topicsLen], make([]byte, topicsLen))
	require.ErrorIs(t, err, errTooManyTopics)
}

func TestSealBlockNumberAndGasPrice(t *testing.T) {
	b, _, _ := newTestBridge(100000)
	fns := b.table()
	v, err := fns["seal_block_number"](nil)
	require.NoError(t, err)
	require.Equal(t, uint64(42), v)

	v, err = fns["seal_gas_price"](nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)
}

// TestSealReturnPanicsWithCapturedOutput exercises the return-data path
// outside a live wagon VM: seal_return never returns normally (sandbox.run
// recovers the panic), so the only way to observe what it captured is to
// recover it here directly, the same contract sandbox.run relies on.
func TestSealReturnPanicsWithCapturedOutput(t *testing.T) {
	b, mem, _ := newTestBridge(100000)
	fns := b.table()
	copy(mem.buf[0:5], []byte("hello"))

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_, _ = fns["seal_return"]([]uint64{1, 0, 5}) // flags=1 (reverted), ptr=0, len=5
	}()

	rs, ok := recovered.(*returnSignal)
	require.True(t, ok, "expected a *returnSignal panic, got %T", recovered)
	require.True(t, rs.reverted)
	require.Equal(t, "hello", string(rs.output))
}

func TestSealCallSurfacesSubCallOutput(t *testing.T) {
	b, mem, svc := newTestBridge(100000)
	svc.callOutput = []byte("callee-output")
	fns := b.table()

	destPtr := uint32(0)
	outputPtr, outputLenPtr := uint32(64), uint32(128)
	binary.LittleEndian.PutUint32(mem.buf[outputLenPtr:], 32) // caller's declared capacity

	rc, err := fns["seal_call"]([]uint64{uint64(destPtr), 0, 0, 0, 0, uint64(outputPtr), uint64(outputLenPtr)})
	require.NoError(t, err)
	require.Equal(t, uint64(StatusSuccess), rc)

	n := binary.LittleEndian.Uint32(mem.buf[outputLenPtr:])
	require.Equal(t, uint32(len(svc.callOutput)), n)
	require.Equal(t, "callee-output", string(mem.buf[outputPtr:outputPtr+n]))
}

func TestSealInstantiateSurfacesAddressAndOutput(t *testing.T) {
	b, mem, svc := newTestBridge(100000)
	svc.instantiateOutput = []byte("ctor-output")
	svc.instantiateAccount = collab.AccountID{0xAB}
	fns := b.table()

	codeHashPtr := uint32(0)
	addressPtr, addressLenPtr := uint32(64), uint32(96)
	outputPtr, outputLenPtr := uint32(128), uint32(160)
	binary.LittleEndian.PutUint32(mem.buf[addressLenPtr:], 20)
	binary.LittleEndian.PutUint32(mem.buf[outputLenPtr:], 32)

	rc, err := fns["seal_instantiate"]([]uint64{
		uint64(codeHashPtr), 0, 0, 0, 0,
		uint64(addressPtr), uint64(addressLenPtr),
		uint64(outputPtr), uint64(outputLenPtr),
	})
	require.NoError(t, err)
	require.Equal(t, uint64(StatusSuccess), rc)

	addrLen := binary.LittleEndian.Uint32(mem.buf[addressLenPtr:])
	require.Equal(t, uint32(len(svc.instantiateAccount)), addrLen)
	require.Equal(t, svc.instantiateAccount[:], mem.buf[addressPtr:addressPtr+addrLen])

	outLen := binary.LittleEndian.Uint32(mem.buf[outputLenPtr:])
	require.Equal(t, uint32(len(svc.instantiateOutput)), outLen)
	require.Equal(t, "ctor-output", string(mem.buf[outputPtr:outputPtr+outLen]))
}
