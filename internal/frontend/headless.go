package frontend

import (
	"context"
	"log/slog"
	"sync"
)

// Headless is the frontend used when no terminal is attached. It keeps
// the visibility state machine honest for socket commands: becoming
// visible opens a query session, becoming invisible closes it. No
// input or rendering happens.
type Headless struct {
	controller Controller

	mu      sync.Mutex
	visible bool
}

// NewHeadless creates a headless frontend. Initially invisible.
func NewHeadless(controller Controller) *Headless {
	return &Headless{controller: controller}
}

// Run drains ranked updates until the context is cancelled so the
// conflated updates channel never parks the publisher.
func (h *Headless) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.controller.Updates():
		}
	}
}

// SetVisible transitions the visibility state and the query session
// with it. Redundant transitions are ignored.
func (h *Headless) SetVisible(visible bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.apply(visible)
}

// ToggleVisibility flips the visibility state. The flip and the session
// transition happen under one lock acquisition so concurrent toggles
// never coalesce.
func (h *Headless) ToggleVisibility() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.apply(!h.visible)
}

// apply runs the transition. Callers hold mu.
func (h *Headless) apply(visible bool) {
	if visible == h.visible {
		return
	}
	h.visible = visible

	if visible {
		if err := h.controller.OpenSession(); err != nil {
			slog.Warn("Failed to open session", slog.String("error", err.Error()))
		}
		return
	}
	if err := h.controller.CloseSession(); err != nil {
		slog.Warn("Failed to close session", slog.String("error", err.Error()))
	}
}

// Visible reports the current visibility state.
func (h *Headless) Visible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

var _ Frontend = (*Headless)(nil)
