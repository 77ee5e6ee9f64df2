package plugin

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/diaz/kanban/internal/board"
)

// Dispatcher delivers board events to subscribed plugins, one event at a
// time in arrival order.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(m *Manager, e *Executor) *Dispatcher {
	return &Dispatcher{manager: m, executor: e}
}

// Run consumes events until ctx is cancelled or events is closed.
func (d *Dispatcher) Run(ctx context.Context, events <-chan board.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			d.Dispatch(ctx, e)
		}
	}
}

// Dispatch runs every plugin subscribed to e and returns how many
// succeeded. Failures are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, e board.Event) int {
	ok := 0
	for _, p := range d.manager.ForEvent(e.Type) {
		resp, err := d.executor.Execute(ctx, p, NewRequest(p, e))
		if err != nil {
			log.Warn().Err(err).Str("plugin", p.Manifest.Name).Str("event", string(e.Type)).Msg("plugin failed")
			continue
		}
		if !resp.Success {
			log.Warn().Str("plugin", p.Manifest.Name).Str("event", string(e.Type)).Str("error", resp.Error).Msg("plugin reported failure")
			continue
		}
		log.Debug().Str("plugin", p.Manifest.Name).Str("event", string(e.Type)).Msg("plugin handled event")
		ok++
	}
	return ok
}
