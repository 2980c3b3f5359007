// Package scripting provides a sandboxed GopherLua execution environment for
// damage-rule hook scripts. It has no dependency on game domain packages;
// resolution context crosses the boundary as plain values.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// hook execution when no limit is configured. Hooks run inside the damage
// resolution step of the simulation tick, so runaway scripts must terminate
// deterministically.
const DefaultInstructionLimit = 100_000

// countingContext is a context.Context that cancels itself after Done() has
// been called limit times. GopherLua's mainLoopWithContext calls Done() once
// per opcode, making this an exact instruction-count limit.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

// Done returns the underlying cancellation channel. Each call decrements the
// remaining counter; when it reaches zero the cancel function fires,
// terminating the Lua VM on the next opcode boundary.
func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

// newCountingContext returns a context that cancels after limit calls to Done().
// Precondition: limit > 0.
func newCountingContext(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{
		Context:   base,
		cancel:    cancel,
		remaining: rem,
	}, cancel
}

// NewSandboxedState creates a GopherLua LState with:
//   - Only safe stdlib loaded: base, table, string, math
//   - Dangerous globals removed: dofile, loadfile, load, collectgarbage, require
//   - An armed budget of at most instLimit Lua opcodes
//
// The budget is a single-execution allowance, not a lifetime one: it is spent
// by whatever runs next on the VM and must be re-armed with
// armInstructionLimit before each subsequent execution.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: Returns a non-nil LState ready for DoFile. The caller owns
// the LState and must call L.Close() when done.
func NewSandboxedState(instLimit int) (*lua.LState, context.CancelFunc) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// Open only safe standard libraries.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Strip dangerous globals left by OpenBase.
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	cancel := armInstructionLimit(L, instLimit)
	return L, cancel
}

// armInstructionLimit installs a fresh opcode budget on L, replacing any
// previously armed one. countingContext.Done() is called by GopherLua's
// mainLoopWithContext on every opcode; the context cancels itself after
// exactly limit opcodes, terminating the execution in flight. The returned
// cancel releases the budget's resources; callers must invoke it (or arm a
// replacement) when the budget is retired.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
func armInstructionLimit(L *lua.LState, instLimit int) context.CancelFunc {
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := newCountingContext(limit)
	L.SetContext(ctx)
	return cancel
}
