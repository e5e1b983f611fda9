package orchestrator

// Option customizes an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithLogger installs a debug logger. The default discards everything.
func WithLogger(logger *DebugLogger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithModeSelector replaces the built-in keyword table, typically with one
// loaded from a modes file.
func WithModeSelector(selector *ModeSelector) Option {
	return func(o *Orchestrator) {
		if selector != nil {
			o.selector = selector
		}
	}
}

// WithEventBuffer sets the event channel capacity. Consumers that fall
// behind lose events rather than stalling the engine.
func WithEventBuffer(size int) Option {
	return func(o *Orchestrator) {
		if size > 0 {
			o.events = make(chan Event, size)
		}
	}
}
