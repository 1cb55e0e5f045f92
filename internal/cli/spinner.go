package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/layerpress/pkg/observability"
)

// Spinner provides a simple progress indicator with context cancellation support.
type Spinner struct {
	message string
	w       io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	frames  []string
	mu      sync.Mutex
}

// newSpinner creates a spinner on stderr that will stop when the context is
// cancelled.
func newSpinner(ctx context.Context, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		w:       os.Stderr,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				frame := s.frames[i%len(s.frames)]
				s.mu.Lock()
				fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(frame), styleDim.Render(s.message))
				s.mu.Unlock()
				i++
			}
		}
	}()
}

// Stop stops the spinner and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// Cancelled returns true if the spinner was stopped due to context cancellation.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

// spinnerHooks shows a spinner while the engine runs, which can take minutes
// without any output at info level. Every event is forwarded to the wrapped
// hooks.
type spinnerHooks struct {
	observability.StageHooks

	mu     sync.Mutex
	active *Spinner
	start  func(ctx context.Context, message string) *Spinner
}

func newSpinnerHooks(next observability.StageHooks) *spinnerHooks {
	return &spinnerHooks{StageHooks: next, start: newSpinner}
}

func (h *spinnerHooks) OnStageStart(ctx context.Context, stage string) {
	h.StageHooks.OnStageStart(ctx, stage)
	if stage != observability.StageGenerate {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		h.active = h.start(ctx, "Generating collection...")
		h.active.Start()
	}
}

func (h *spinnerHooks) OnStageComplete(ctx context.Context, stage string, d time.Duration, err error) {
	if stage == observability.StageGenerate {
		h.mu.Lock()
		if s := h.active; s != nil {
			h.active = nil
			if err == nil {
				s.StopWithSuccess(fmt.Sprintf("Generated collection in %s", d.Round(time.Second)))
			} else {
				s.Stop()
			}
		}
		h.mu.Unlock()
	}
	h.StageHooks.OnStageComplete(ctx, stage, d, err)
}
