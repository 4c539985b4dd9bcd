// Package scripting runs world room scripts in sandboxed GopherLua VMs. It
// has no dependency on game domain packages; all game interactions are
// injected via Manager callback fields.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit caps Lua opcodes per script execution when the
// world config does not override it.
const DefaultInstructionLimit = 100_000

// opcodeBudget is a context.Context whose Done method burns one unit of
// budget per call. GopherLua's main loop consults Done once per opcode, so
// exhausting the budget cancels the VM on an exact opcode boundary.
type opcodeBudget struct {
	context.Context
	cancel    context.CancelFunc
	remaining atomic.Int64
}

func (b *opcodeBudget) Done() <-chan struct{} {
	if b.remaining.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// newOpcodeBudget returns a context that cancels after limit calls to Done.
//
// Precondition: limit > 0.
func newOpcodeBudget(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	b := &opcodeBudget{Context: base, cancel: cancel}
	b.remaining.Store(int64(limit))
	return b, cancel
}

// NewSandboxedState creates an LState with only the safe stdlib (base,
// table, string, math), filesystem and loader globals stripped, and
// execution bounded to instLimit opcodes.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: The caller owns both returns: L.Close() and cancel() must
// be called when done.
func NewSandboxedState(instLimit int) (*lua.LState, context.CancelFunc) {
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// OpenBase leaves escape hatches behind; remove them.
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	ctx, cancel := newOpcodeBudget(limit)
	L.SetContext(ctx)

	return L, cancel
}
