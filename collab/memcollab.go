package collab

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrBelowExistentialDeposit is returned when a transfer or withdrawal would
// leave an account with a non-zero balance under the existential deposit;
// ErrBalanceTooLow is returned when the source account lacks the funds
// requested (spec §7, Economic: BelowExistentialDeposit / BalanceTooLow).
var (
	ErrBelowExistentialDeposit = errors.New("collab: balance below existential deposit")
	ErrBalanceTooLow           = errors.New("collab: balance too low")
)

// MemCurrency is a minimal in-memory Currency used by contracts-core's own
// tests and by callers that don't yet have a real currency module wired in.
// It mirrors the teacher's habit of keeping collaborator implementations
// small and test-focused (state_transition.go takes an IntraBlockState
// interface; its test doubles are equally minimal).
type MemCurrency struct {
	balances map[AccountID]*uint256.Int
	existDep *uint256.Int
}

// NewMemCurrency builds a MemCurrency with the given existential deposit.
func NewMemCurrency(existentialDeposit *uint256.Int) *MemCurrency {
	return &MemCurrency{
		balances: make(map[AccountID]*uint256.Int),
		existDep: existentialDeposit,
	}
}

func (c *MemCurrency) Balance(a AccountID) *uint256.Int {
	if b, ok := c.balances[a]; ok {
		return b.Clone()
	}
	return uint256.NewInt(0)
}

// SetBalance seeds an account's balance directly; used by tests to set up
// fixtures without going through Transfer.
func (c *MemCurrency) SetBalance(a AccountID, v *uint256.Int) {
	c.balances[a] = v.Clone()
}

func (c *MemCurrency) ExistentialDeposit() *uint256.Int { return c.existDep.Clone() }

func (c *MemCurrency) Withdraw(a AccountID, amount *uint256.Int) error {
	bal := c.Balance(a)
	if bal.Lt(amount) {
		return ErrBalanceTooLow
	}
	remaining := new(uint256.Int).Sub(bal, amount)
	if !remaining.IsZero() && remaining.Lt(c.existDep) {
		return ErrBelowExistentialDeposit
	}
	c.balances[a] = remaining
	return nil
}

func (c *MemCurrency) Deposit(a AccountID, amount *uint256.Int) {
	c.balances[a] = new(uint256.Int).Add(c.Balance(a), amount)
}

func (c *MemCurrency) Transfer(from, to AccountID, amount *uint256.Int, reason TransferReason) error {
	if amount.IsZero() {
		return nil
	}
	fromBal := c.Balance(from)
	if fromBal.Lt(amount) {
		return ErrBalanceTooLow
	}
	remaining := new(uint256.Int).Sub(fromBal, amount)
	if !remaining.IsZero() && remaining.Lt(c.existDep) {
		return ErrBelowExistentialDeposit
	}
	toBal := new(uint256.Int).Add(c.Balance(to), amount)
	if toBal.Lt(c.existDep) {
		return ErrBelowExistentialDeposit
	}
	c.balances[from] = remaining
	c.balances[to] = toBal
	return nil
}

func (c *MemCurrency) Burn(a AccountID, amount *uint256.Int) {
	bal := c.Balance(a)
	if bal.Lt(amount) {
		amount = bal
	}
	c.balances[a] = new(uint256.Int).Sub(bal, amount)
}

// MemCodeStore is an in-memory CodeStore, enough to drive put_code/
// instantiate tests without a real code-storage backend.
type MemCodeStore struct {
	pristine     map[CodeHash][]byte
	instrumented map[CodeHash][]byte
}

func NewMemCodeStore() *MemCodeStore {
	return &MemCodeStore{
		pristine:     make(map[CodeHash][]byte),
		instrumented: make(map[CodeHash][]byte),
	}
}

func (c *MemCodeStore) PutPristine(h CodeHash, code []byte) { c.pristine[h] = code }

func (c *MemCodeStore) GetPristine(h CodeHash) ([]byte, bool) {
	v, ok := c.pristine[h]
	return v, ok
}

func (c *MemCodeStore) PutInstrumented(h CodeHash, module []byte) { c.instrumented[h] = module }

func (c *MemCodeStore) GetInstrumented(h CodeHash) ([]byte, bool) {
	v, ok := c.instrumented[h]
	return v, ok
}

// MemChildStore is an in-memory ChildStore, enough to drive the rent/
// restoration property tests (spec §8) without a real trie backend.
type MemChildStore struct {
	subtrees map[string]map[[32]byte][]byte
	roots    map[string][32]byte
}

func NewMemChildStore() *MemChildStore {
	return &MemChildStore{
		subtrees: make(map[string]map[[32]byte][]byte),
		roots:    make(map[string][32]byte),
	}
}

func (m *MemChildStore) tree(trie TrieID) map[[32]byte][]byte {
	k := string(trie)
	t, ok := m.subtrees[k]
	if !ok {
		t = make(map[[32]byte][]byte)
		m.subtrees[k] = t
	}
	return t
}

func (m *MemChildStore) Get(trie TrieID, key [32]byte) ([]byte, bool) {
	v, ok := m.tree(trie)[key]
	return v, ok
}

func (m *MemChildStore) Set(trie TrieID, key [32]byte, value []byte) {
	m.tree(trie)[key] = value
}

func (m *MemChildStore) Delete(trie TrieID, key [32]byte) {
	delete(m.tree(trie), key)
}

func (m *MemChildStore) Root(trie TrieID) [32]byte {
	return computeRoot(m.tree(trie))
}

func (m *MemChildStore) Kill(trie TrieID) [32]byte {
	root := m.Root(trie)
	delete(m.subtrees, string(trie))
	return root
}

// RootExcluding XORs out the mixed hash of every (key, value) pair named in
// exclude from the subtree's current root, without touching the subtree
// itself. Because computeRoot folds pairs with XOR, removing a pair that is
// present is its own inverse: XOR-ing it back out reproduces exactly the
// root the subtree would have without it.
func (m *MemChildStore) RootExcluding(trie TrieID, exclude [][32]byte) [32]byte {
	tree := m.tree(trie)
	root := m.Root(trie)
	for _, k := range exclude {
		v, ok := tree[k]
		if !ok {
			continue
		}
		mixed := mixKV(k, v)
		for i := range root {
			root[i] ^= mixed[i]
		}
	}
	return root
}

// computeRoot folds the subtree's key/value pairs into a single digest.
// A production chain would use its real trie-commitment scheme here; this
// is a deterministic stand-in sufficient for the tombstone round-trip
// property (spec §8.5): equal content always hashes equal, and the function
// is order-independent over the map so restoration order doesn't matter.
func computeRoot(tree map[[32]byte][]byte) [32]byte {
	var acc [32]byte
	for k, v := range tree {
		mixed := mixKV(k, v)
		for i := range acc {
			acc[i] ^= mixed[i]
		}
	}
	return acc
}

// MemWeightAccounting is a minimal in-memory WeightAccounting for the gas
// broker's own tests and for callers without a real block-weight ledger
// wired in yet.
type MemWeightAccounting struct {
	ceiling uint64
	used    uint64
}

func NewMemWeightAccounting(ceiling uint64) *MemWeightAccounting {
	return &MemWeightAccounting{ceiling: ceiling}
}

func (m *MemWeightAccounting) Used() uint64 { return m.used }

func (m *MemWeightAccounting) Ceiling() uint64 { return m.ceiling }

func (m *MemWeightAccounting) Register(weight uint64) { m.used += weight }

// ResetBlock clears the used counter, the way a real block-weight ledger
// would at the start of every block.
func (m *MemWeightAccounting) ResetBlock() { m.used = 0 }
