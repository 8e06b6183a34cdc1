// Package frontend owns the interaction surface: it drives the query
// session from user input and renders the live-updated ranked results.
// Visibility commands arrive either from the local user or through the
// instance socket.
package frontend

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/beamlauncher/beam/internal/query"
)

// Controller is the query-session surface the frontend drives. The
// orchestrator implements it.
type Controller interface {
	OpenSession() error
	CloseSession() error
	SubmitQuery(text string) error
	AcceptResult(resultID string) error
	Updates() <-chan []query.RankedItem
}

// Frontend is an interaction surface. SetVisible and ToggleVisibility
// must be safe to call from any goroutine; Run blocks until the
// context is cancelled or the user quits.
type Frontend interface {
	Run(ctx context.Context) error
	SetVisible(visible bool)
	ToggleVisibility()
}

// Config selects and parameterizes the frontend.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	MaxVisible int
}

// New picks the frontend for the environment: the interactive one on a
// terminal, the headless one for pipes and service-style runs.
func New(cfg Config, controller Controller) Frontend {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.ForcePlain || !IsTTY(cfg.Output) {
		return NewHeadless(controller)
	}
	return NewTUI(cfg, controller)
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
