package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fieldbook/pkg/pipeline"
)

func TestSpinnerMessage(t *testing.T) {
	tests := []struct {
		stage  pipeline.Stage
		detail string
		want   string
	}{
		{pipeline.StageGenerate, "", "Generating layout..."},
		{pipeline.StageVerify, "8 plots", "Verifying blocks (8 plots)..."},
		{pipeline.StageRender, "svg, png", "Rendering (svg, png)..."},
		{"export", "", "export..."},
	}
	for _, tt := range tests {
		s := newSpinner(context.Background(), &bytes.Buffer{}, tt.stage, tt.detail)
		if got := s.message(); got != tt.want {
			t.Errorf("message(%s) = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestSpinnerFollowsStages(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, pipeline.StageGenerate, "")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Advance(pipeline.StageVerify, "8 plots")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	for _, want := range []string{"Generating layout", "Verifying blocks (8 plots)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if s.Stage() != pipeline.StageVerify {
		t.Errorf("Stage() = %s, want %s", s.Stage(), pipeline.StageVerify)
	}
	if s.Cancelled() {
		t.Error("Stop reported as cancellation")
	}
}

func TestSpinnerDrivenByExecute(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, pipeline.StageGenerate, "")
	s.Start()

	seed := uint64(4)
	opts := pipeline.Options{Formats: []string{"svg"}, Progress: s.Advance}
	opts.Design.Genotypes = []string{"A", "B", "C"}
	opts.Design.Blocks = 2
	opts.Design.Seed = &seed
	opts.Logger = newLogger(&bytes.Buffer{}, log.InfoLevel)
	if _, err := pipeline.NewRunner(nil, nil, nil).Execute(context.Background(), opts); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	s.Stop()

	if s.Stage() != pipeline.StageRender {
		t.Errorf("Stage() = %s, want %s", s.Stage(), pipeline.StageRender)
	}
}

func TestSpinnerFail(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, pipeline.StageRender, "pdf")
	s.Start()
	s.Fail()

	if !strings.Contains(buf.String(), "Rendering failed") {
		t.Errorf("output = %q, want the failed stage", buf.String())
	}
}

func TestSpinnerCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinner(ctx, &bytes.Buffer{}, pipeline.StageGenerate, "")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if !s.Cancelled() {
		t.Error("spinner should report cancellation after the context expired")
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := newSpinner(context.Background(), &bytes.Buffer{}, pipeline.StageGenerate, "")
	s.Stop()
	s.Stop()
}
