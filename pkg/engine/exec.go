package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layerpress/pkg/errors"
)

// Environment variables set for the engine command.
const (
	EnvAssetsDir   = "LAYERPRESS_ASSETS_DIR"
	EnvOutputDir   = "LAYERPRESS_OUTPUT_DIR"
	EnvImagesDir   = "LAYERPRESS_IMAGES_DIR"
	EnvMetadataDir = "LAYERPRESS_METADATA_DIR"
	EnvStartIndex  = "LAYERPRESS_START_INDEX"
	EnvEndIndex    = "LAYERPRESS_END_INDEX"
	EnvWidth       = "LAYERPRESS_WIDTH"
	EnvHeight      = "LAYERPRESS_HEIGHT"
)

// stderrTail bounds how much engine stderr is kept for error messages.
const stderrTail = 4 << 10

// Plan is the JSON document written to the engine's stdin.
type Plan struct {
	StartIndex  int         `json:"start_index"`
	EndIndex    int         `json:"end_index"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Names       []IndexName `json:"names"`
	Description string      `json:"description"`
}

// IndexName pairs an item index with its rendered name.
type IndexName struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// NewPlan renders the names of every index in the request and the
// description for an item without attributes.
func NewPlan(req Request) (Plan, error) {
	p := Plan{
		StartIndex: req.StartIndex,
		EndIndex:   req.EndIndex,
		Width:      req.Width,
		Height:     req.Height,
		Names:      make([]IndexName, 0, req.EndIndex-req.StartIndex+1),
	}
	for i := req.StartIndex; i <= req.EndIndex; i++ {
		name, err := req.Namer.Name(i)
		if err != nil {
			return Plan{}, err
		}
		p.Names = append(p.Names, IndexName{Index: i, Name: name})
	}
	desc, err := req.Describer.Describe(nil)
	if err != nil {
		return Plan{}, err
	}
	p.Description = desc
	return p, nil
}

// ExecEngine runs an external command as the engine.
//
// The command inherits the current environment plus the LAYERPRESS_*
// variables describing the request and any configured extras. Its stdin
// carries a [Plan]. It must leave the images and metadata directories in
// place when it exits successfully.
type ExecEngine struct {
	command []string
	env     map[string]string
	logger  *log.Logger
}

// NewExec creates an ExecEngine. A nil logger discards engine output.
func NewExec(command []string, env map[string]string, logger *log.Logger) *ExecEngine {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &ExecEngine{
		command: append([]string(nil), command...),
		env:     env,
		logger:  logger,
	}
}

// Generate implements Engine.
func (e *ExecEngine) Generate(ctx context.Context, req Request) (Output, error) {
	if len(e.command) == 0 || strings.TrimSpace(e.command[0]) == "" {
		return Output{}, errors.New(errors.ErrCodeInvalidConfig, "no engine command configured")
	}
	if err := req.Validate(); err != nil {
		return Output{}, err
	}
	plan, err := NewPlan(req)
	if err != nil {
		return Output{}, err
	}
	stdin, err := json.Marshal(plan)
	if err != nil {
		return Output{}, errors.Wrap(errors.ErrCodeInternal, err, "encode engine plan")
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Output{}, errors.Wrap(errors.ErrCodeIO, err, "create %s", req.OutputDir)
	}

	cmd := exec.CommandContext(ctx, e.command[0], e.command[1:]...)
	cmd.Env = append(os.Environ(), e.environ(req)...)
	cmd.Stdin = bytes.NewReader(stdin)
	stderr := &tailBuffer{limit: stderrTail}
	stdoutLog := &lineLogger{logger: e.logger, stream: "stdout"}
	stderrLog := &lineLogger{logger: e.logger, stream: "stderr"}
	cmd.Stdout = stdoutLog
	cmd.Stderr = io.MultiWriter(stderr, stderrLog)

	e.logger.Info("starting engine", "command", strings.Join(e.command, " "), "items", len(plan.Names))
	start := time.Now()
	err = cmd.Run()
	stdoutLog.Flush()
	stderrLog.Flush()
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return Output{}, errors.Wrap(errors.ErrCodeEngineFailed, err, "engine %s: %s", e.command[0], msg)
		}
		return Output{}, errors.Wrap(errors.ErrCodeEngineFailed, err, "engine %s", e.command[0])
	}
	e.logger.Info("engine finished", "took", time.Since(start).Round(time.Millisecond))

	out := Output{ImagesDir: req.ImagesDir, MetadataDir: req.MetadataDir}
	if err := checkOutput(out); err != nil {
		return Output{}, errors.Wrap(errors.ErrCodeEngineFailed, err, "engine %s exited cleanly without output", e.command[0])
	}
	return out, nil
}

func (e *ExecEngine) environ(req Request) []string {
	vars := []string{
		EnvAssetsDir + "=" + req.AssetsDir,
		EnvOutputDir + "=" + req.OutputDir,
		EnvImagesDir + "=" + req.ImagesDir,
		EnvMetadataDir + "=" + req.MetadataDir,
		EnvStartIndex + "=" + strconv.Itoa(req.StartIndex),
		EnvEndIndex + "=" + strconv.Itoa(req.EndIndex),
		EnvWidth + "=" + strconv.Itoa(req.Width),
		EnvHeight + "=" + strconv.Itoa(req.Height),
	}
	keys := make([]string, 0, len(e.env))
	for k := range e.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vars = append(vars, fmt.Sprintf("%s=%s", k, e.env[k]))
	}
	return vars
}

// lineLogger forwards complete lines written by the engine to the logger.
// Flush emits a trailing line that has no newline.
type lineLogger struct {
	logger *log.Logger
	stream string
	buf    []byte
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineLogger) Flush() {
	w.emit(w.buf)
	w.buf = nil
}

func (w *lineLogger) emit(b []byte) {
	if line := strings.TrimRight(string(b), "\r"); line != "" {
		w.logger.Debug(line, "engine", w.stream)
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
