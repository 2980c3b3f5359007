package stats

// Engine runs the per-tick modifier pass over every registered ledger:
// UpdateModifiers(dt) then ApplyModifiers(), in that fixed order, so a
// modifier never applies for a tick after its duration has elapsed.
//
// Ledgers are visited in registration order, giving a deterministic global
// pass. Engine holds no other state and is not safe for concurrent use.
type Engine struct {
	ledgers map[string]*Ledger
	order   []string
}

// NewEngine creates an empty Engine.
func NewEngine() *Engine {
	return &Engine{ledgers: make(map[string]*Ledger)}
}

// Register adds a ledger under the given entity ID. Registering an existing
// ID replaces the ledger but keeps its position in the pass order.
//
// Precondition: id must be non-empty and ledger non-nil.
func (e *Engine) Register(id string, ledger *Ledger) {
	if id == "" {
		panic("stats.Engine.Register: id must be non-empty")
	}
	if ledger == nil {
		panic("stats.Engine.Register: ledger must be non-nil")
	}
	if _, exists := e.ledgers[id]; !exists {
		e.order = append(e.order, id)
	}
	e.ledgers[id] = ledger
}

// Unregister removes the ledger for id. No-op when absent.
func (e *Engine) Unregister(id string) {
	if _, exists := e.ledgers[id]; !exists {
		return
	}
	delete(e.ledgers, id)
	for i, other := range e.order {
		if other == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Ledger returns the ledger registered under id, if any.
func (e *Engine) Ledger(id string) (*Ledger, bool) {
	l, ok := e.ledgers[id]
	return l, ok
}

// Len returns the number of registered ledgers.
func (e *Engine) Len() int {
	return len(e.ledgers)
}

// Step advances every ledger by dt: decay first, then recompute.
func (e *Engine) Step(dt float64) {
	for _, id := range e.order {
		l := e.ledgers[id]
		l.UpdateModifiers(dt)
		l.ApplyModifiers()
	}
}
