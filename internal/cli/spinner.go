package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/fieldbook/pkg/pipeline"
)

var stageLabels = map[pipeline.Stage]string{
	pipeline.StageGenerate: "Generating layout",
	pipeline.StageVerify:   "Verifying blocks",
	pipeline.StageRender:   "Rendering",
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates the current pipeline stage on a single line. It follows
// Runner.Execute through Advance, which matches pipeline.Options.Progress.
type Spinner struct {
	out     io.Writer
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu      sync.Mutex
	started bool
	stage   pipeline.Stage
	detail  string
	width   int
}

// newSpinner returns a spinner for stage that stops when ctx is done.
func newSpinner(ctx context.Context, out io.Writer, stage pipeline.Stage, detail string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		out:     out,
		parent:  ctx,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		stage:   stage,
		detail:  detail,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// Advance switches to a new stage.
func (s *Spinner) Advance(stage pipeline.Stage, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage, s.detail = stage, detail
}

// Stage returns the stage being shown.
func (s *Spinner) Stage() pipeline.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *Spinner) message() string {
	label, ok := stageLabels[s.stage]
	if !ok {
		label = string(s.stage)
	}
	if s.detail != "" {
		label += " (" + s.detail + ")"
	}
	return label + "..."
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.message()
	// Pad over a longer previous message.
	pad := max(s.width-len(msg), 0)
	s.width = max(s.width, len(msg))
	fmt.Fprintf(s.out, "\r%s %s%s", styleIconSpinner.Render(frame), StyleDim.Render(msg), strings.Repeat(" ", pad))
}

// Stop ends the animation and clears the line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.stopped
	}
	s.cancel()
	s.clearLine()
}

// Fail stops the spinner and reports the stage that failed.
func (s *Spinner) Fail() {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	label, ok := stageLabels[s.stage]
	if !ok {
		label = string(s.stage)
	}
	fmt.Fprintln(s.out, verdictProblem.icon()+" "+label+" failed")
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width == 0 {
		return
	}
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width+2))
}

// Cancelled reports whether the caller's context stopped the spinner.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
