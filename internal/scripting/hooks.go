package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// defaultKey is the reserved key for shared hook scripts loaded via
// LoadDefault. AdjustDamage falls back to this VM when no type VM is found.
const defaultKey = "__default__"

// DamageInfo is the resolution context passed to the on_damage Lua hook.
// Amount is the running post-multiplier amount the hook may replace;
// OriginalAmount is the raw intent amount.
type DamageInfo struct {
	Type           string
	Amount         float64
	OriginalAmount float64
	Crit           bool
	Block          bool
	TargetID       string
	SourceID       string
}

// Hooks owns one sandboxed LState per damage type and dispatches the
// on_damage hook during damage resolution. A hook script defines a global
// function:
//
//	function on_damage(info) return info.amount * 0.5 end
//
// A numeric return replaces the running amount; any other return leaves it
// unchanged. Lua runtime errors are logged at Warn level and absorbed;
// resolution never fails on a script error.
//
// The opcode budget is re-armed before every hook call, so each execution
// gets the full limit; a runaway hook is terminated without poisoning the VM
// for later calls.
//
// All calls are serialised with an exclusive lock: lua.LState is not
// goroutine-safe, and re-arming mutates the VM's context.
type Hooks struct {
	mu      sync.Mutex
	states  map[string]*lua.LState
	limits  map[string]int
	cancels map[string]func()
	logger  *zap.Logger
}

// NewHooks creates an empty Hooks dispatcher.
//
// Precondition: logger must be non-nil.
func NewHooks(logger *zap.Logger) *Hooks {
	if logger == nil {
		panic("scripting.NewHooks: logger must be non-nil")
	}
	return &Hooks{
		states:  make(map[string]*lua.LState),
		limits:  make(map[string]int),
		cancels: make(map[string]func()),
		logger:  logger,
	}
}

// LoadType creates a sandboxed VM for damageType and executes every *.lua
// file in scriptDir in lexicographic order.
//
// Precondition: damageType must be non-empty; scriptDir must be readable.
// Postcondition: The type VM is registered; returns error on Lua load failure.
func (h *Hooks) LoadType(damageType, scriptDir string, instLimit int) error {
	if damageType == "" {
		return fmt.Errorf("scripting: damage type must not be empty")
	}
	return h.loadInto(damageType, scriptDir, instLimit)
}

// LoadDefault creates the fallback VM consulted for damage types without
// their own scripts.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: The default VM is registered; returns error on load failure.
func (h *Hooks) LoadDefault(scriptDir string, instLimit int) error {
	return h.loadInto(defaultKey, scriptDir, instLimit)
}

func (h *Hooks) loadInto(key, scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	// Each file gets its own full budget.
	for _, path := range luaFiles {
		cancel()
		cancel = armInstructionLimit(L, instLimit)
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	h.register(key, L, instLimit, cancel)
	return nil
}

// register installs L as the VM for key, closing any VM it replaces.
func (h *Hooks) register(key string, L *lua.LState, instLimit int, cancel func()) {
	h.mu.Lock()
	if old, ok := h.states[key]; ok {
		if oldCancel := h.cancels[key]; oldCancel != nil {
			oldCancel()
		}
		old.Close()
	}
	h.states[key] = L
	h.limits[key] = instLimit
	h.cancels[key] = cancel
	h.mu.Unlock()
}

// LoadTypeFromString loads a single script body into the VM for damageType.
// Intended for tests and embedded defaults.
func (h *Hooks) LoadTypeFromString(damageType, script string, instLimit int) error {
	if damageType == "" {
		return fmt.Errorf("scripting: damage type must not be empty")
	}
	L, cancel := NewSandboxedState(instLimit)
	if err := L.DoString(script); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: loading script for %q: %w", damageType, err)
	}
	h.register(damageType, L, instLimit, cancel)
	return nil
}

// AdjustDamage calls the on_damage hook for info.Type, falling back to the
// default VM. Returns (amount, true) when a hook returned a number, or
// (0, false) when no VM exists, the hook is undefined, it returned a
// non-number, or it errored. Every call runs under a freshly armed opcode
// budget.
func (h *Hooks) AdjustDamage(info DamageInfo) (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := info.Type
	L, ok := h.states[key]
	if !ok {
		key = defaultKey
		L = h.states[defaultKey]
	}
	if L == nil {
		return 0, false
	}

	fn := L.GetGlobal("on_damage")
	if fn == lua.LNil {
		return 0, false
	}

	if oldCancel := h.cancels[key]; oldCancel != nil {
		oldCancel()
	}
	h.cancels[key] = armInstructionLimit(L, h.limits[key])

	arg := L.NewTable()
	L.SetField(arg, "type", lua.LString(info.Type))
	L.SetField(arg, "amount", lua.LNumber(info.Amount))
	L.SetField(arg, "original", lua.LNumber(info.OriginalAmount))
	L.SetField(arg, "crit", lua.LBool(info.Crit))
	L.SetField(arg, "block", lua.LBool(info.Block))
	L.SetField(arg, "target", lua.LString(info.TargetID))
	L.SetField(arg, "source", lua.LString(info.SourceID))

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, arg); err != nil {
		h.logger.Warn("scripting: Lua runtime error in on_damage",
			zap.String("type", info.Type),
			zap.Error(err),
		)
		return 0, false
	}

	ret := L.Get(-1)
	L.Pop(1)
	if n, ok := ret.(lua.LNumber); ok {
		return float64(n), true
	}
	return 0, false
}

// Close shuts down every VM. The Hooks must not be used afterwards.
func (h *Hooks) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, L := range h.states {
		if cancel := h.cancels[key]; cancel != nil {
			cancel()
		}
		L.Close()
	}
	h.states = make(map[string]*lua.LState)
	h.limits = make(map[string]int)
	h.cancels = make(map[string]func())
}
