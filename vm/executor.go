// Package vm is the Wasm Executor (C4): it loads instrumented code,
// exposes host functions, and bridges sandbox memory to the account
// overlay (spec §4.4).
package vm

import (
	"errors"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/decentchain/contracts-core/collab"
	"github.com/decentchain/contracts-core/gastype"
	"github.com/erigontech/erigon-lib/log/v3"
)

// Status distinguishes a normal contract exit from a revert (spec §4.4).
type Status uint8

const (
	StatusSuccess Status = iota
	StatusReverted
)

var (
	ErrCodeInvalid              = errors.New("vm: instrumented code invalid or missing")
	ErrValueTooLarge            = errors.New("vm: value exceeds MaxValueSize")
	ErrStackOverflow            = errors.New("vm: stack overflow")
	ErrMemoryAccessOutOfBounds  = errors.New("vm: sandbox memory access out of bounds")
)

// Entry names the Wasm entry point invoked for a given call kind (spec
// §4.4: "deploy" for instantiation, "call" for invocation).
type Entry string

const (
	EntryDeploy Entry = "deploy"
	EntryCall   Entry = "call"
)

// Trap is a host- or sandbox-detected fault distinct from a contract revert:
// a trap always consumes all remaining frame gas and always fails the frame
// (spec §4.4).
type Trap struct {
	Err error
}

func (t *Trap) Error() string { return "vm: trap: " + t.Err.Error() }
func (t *Trap) Unwrap() error { return t.Err }

// Result is what a Wasm invocation returns to its caller (C5).
type Result struct {
	Status Status
	Output []byte
}

// HostContext is everything a host function needs: the caller's gas meter,
// the account overlay for this frame, and the identities of the frame it is
// running in. vm never constructs one itself — C5 does, one per frame, and
// passes it in to Invoke.
type HostContext struct {
	Meter    *gastype.Meter
	Schedule gastype.Schedule

	Self   collab.AccountID
	Caller collab.AccountID

	// Services bridges out to the rest of C5/C6/C7/collaborators; see
	// host.go for the full surface a contract can reach through it.
	Services HostServices
}

// Executor loads instrumented code and runs it inside a sandbox (spec
// §4.4). It is stateless across calls beyond its code cache: each Invoke
// gets a fresh sandbox instance.
type Executor struct {
	code refreshableCodeStore
	hot  *fastcache.Cache
}

type refreshableCodeStore interface {
	GetInstrumented(h collab.CodeHash) ([]byte, bool)
}

// NewExecutor builds an Executor backed by code, with a hotCacheBytes-sized
// in-memory cache of recently used instrumented modules fronting it — the
// same "raw byte cache keyed by hash in front of the real store" shape
// erigon/go-ethereum use for hot code and trie nodes.
func NewExecutor(code refreshableCodeStore, hotCacheBytes int) *Executor {
	return &Executor{
		code: code,
		hot:  fastcache.New(hotCacheBytes),
	}
}

// Invoke loads the instrumented module for codeHash, instantiates a fresh
// sandbox bounded by hc.Schedule's limits, and runs entry with input (spec
// §4.4). A trap is returned as *Trap; a successful return or a contract
// revert is returned as (*Result, nil).
func (e *Executor) Invoke(hc *HostContext, codeHash collab.CodeHash, entry Entry, input []byte) (*Result, error) {
	module, ok := e.loadModule(codeHash)
	if !ok {
		return nil, &Trap{Err: ErrCodeInvalid}
	}

	sb, err := newSandbox(module, hc.Schedule)
	if err != nil {
		log.Debug("vm: sandbox construction failed", "codeHash", codeHash, "err", err)
		return nil, &Trap{Err: err}
	}

	bridge := newHostBridge(hc, sb)
	sb.bindHostFunctions(bridge.table())

	out, status, err := sb.run(entry, input)
	if err != nil {
		return nil, &Trap{Err: err}
	}
	return &Result{Status: status, Output: out}, nil
}

func (e *Executor) loadModule(h collab.CodeHash) ([]byte, bool) {
	key := h[:]
	if v := e.hot.Get(nil, key); v != nil {
		return v, true
	}
	module, ok := e.code.GetInstrumented(h)
	if !ok {
		return nil, false
	}
	e.hot.Set(key, module)
	return module, true
}
