package sim

// EngineCore is the synchronous simulation the loop drives. AdvanceTick is
// called exactly once per tick with the commands drained for it, in arrival
// order; the implementation owns all state mutation for the tick's duration.
type EngineCore interface {
	AdvanceTick(tick uint64, commands []Command)
}
