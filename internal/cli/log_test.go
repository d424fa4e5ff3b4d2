package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/pipeline"
	"github.com/matzehuels/fieldbook/pkg/table"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("generated layout") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("cache miss") }, false},
		{"debug with verbose", log.DebugLevel, func(l *log.Logger) { l.Debug("cache miss") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("wrote output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestNewLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("layout complete")

	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `).MatchString(buf.String()) {
		t.Errorf("output = %q, want a HH:MM:SS.cc timestamp first", buf.String())
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel), "joined files")
	prog.done("rows", 3, "columns", 2)

	out := buf.String()
	for _, want := range []string{"joined files", "rows=3", "columns=2", "elapsed="} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %q, missing %q", out, want)
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	if got := loggerFromContext(withLogger(context.Background(), logger)); got != logger {
		t.Error("loggerFromContext did not return the attached logger")
	}
	if loggerFromContext(context.Background()) == nil {
		t.Error("loggerFromContext without a logger returned nil")
	}
}

func TestCommandLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	ctx := withLogger(context.Background(), newLogger(&buf, log.InfoLevel))

	commandLogger(ctx, "clean").Info("outlier rows", "count", 2)

	out := buf.String()
	if !strings.Contains(out, "clean") || !strings.Contains(out, "outlier rows") {
		t.Errorf("output = %q, want the command prefix and message", out)
	}
}

func TestJoinFilesLogsUnderCommand(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"plot_a.csv": "plot,yield\n1,10\n",
		"plot_b.csv": "plot,yield\n2,12\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	ctx := withLogger(context.Background(), newLogger(&buf, log.InfoLevel))
	df, err := table.JoinFiles(ctx, dir, table.JoinOptions{Logger: commandLogger(ctx, "join")})
	if err != nil {
		t.Fatalf("JoinFiles: %v", err)
	}
	if df.Nrow() != 2 {
		t.Errorf("rows = %d, want 2", df.Nrow())
	}

	out := buf.String()
	if !strings.Contains(out, "join") || !strings.Contains(out, "read 2 of 2 files") {
		t.Errorf("output = %q, want join progress", out)
	}
}

func TestRunnerLogsThroughCLILogger(t *testing.T) {
	var buf bytes.Buffer
	c := &CLI{Logger: newLogger(&buf, log.InfoLevel), NoCache: true}
	runner, err := c.newRunner()
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	defer runner.Close()

	seed := uint64(7)
	opts := pipeline.Options{Design: design.Options{Genotypes: []string{"A", "B", "C"}, Blocks: 2, Seed: &seed}}
	if _, err := runner.Execute(context.Background(), opts); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "generated layout") || !strings.Contains(out, "plots=6") {
		t.Errorf("output = %q, want the generate summary", out)
	}
}
