package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/jpequegn/polybench/internal/dsl"
	"github.com/jpequegn/polybench/internal/synth"
)

// buildCommandFunc lets tests substitute a fake build-and-run command
// (the teacher's executor_test.go does the same with `sh -c`) instead of
// shelling out to go/node/cargo.
type buildCommandFunc func(lang dsl.Lang, srcPath, fullName string) (name string, args []string, workDir string, err error)

// Runner writes synthesized source to disk and runs it (spec §4.F).
// NewRunner lets callers supply a logger and, in tests, a fake
// build-and-run command, matching the teacher's NewExecutor(progressHandler)
// constructor shape.
type Runner struct {
	logger  *slog.Logger
	command buildCommandFunc
}

// NewRunner builds a Runner. logger may be nil, in which case slog.Default
// is used.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, command: buildCommand}
}

// withCommand overrides the build-and-run command, for tests that stand
// in a fake `sh -c` invocation rather than a real go/node/cargo toolchain.
func (r *Runner) withCommand(fn buildCommandFunc) *Runner {
	r.command = fn
	return r
}

// Run writes req.Source to its deterministic path, ensures the language
// manifest exists, invokes the build-and-run command with a timeout, and
// parses the final non-empty stdout line as a RawResult.
func (r *Runner) Run(ctx context.Context, fs afero.Fs, req Request) (*Result, error) {
	tmpl, ok := synth.ForLang(req.Lang)
	if !ok {
		return nil, fmt.Errorf("runner: unsupported language %q", req.Lang)
	}
	ext := tmpl.Extension()

	srcPath := sourcePath(req.RuntimeEnvDir, req.Lang, req.FullName, ext)
	if err := fs.MkdirAll(filepath.Dir(srcPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating runtime-env dir: %w", err)
	}
	if err := afero.WriteFile(fs, srcPath, []byte(req.Source), 0o644); err != nil {
		return nil, fmt.Errorf("writing synthesized source %s: %w", srcPath, err)
	}

	if err := synth.EnsureManifest(fs, manifestDir(req.RuntimeEnvDir, req.Lang), req.Lang, req.ManifestDeps); err != nil {
		return nil, fmt.Errorf("ensuring manifest: %w", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name, args, workDir, err := r.command(req.Lang, srcPath, req.FullName)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("runner: executing benchmark", "benchmark", req.FullName, "lang", req.Lang, "cmd", name, "args", args)

	start := time.Now()
	stdout, stderr, runErr := r.execute(runCtx, name, args, workDir, req.AnvilURL)
	duration := time.Since(start)

	if runErr != nil {
		return nil, &RuntimeFailure{FullName: req.FullName, Lang: req.Lang, Stderr: stderr, Cause: runErr}
	}

	line := lastNonEmptyLine(stdout)
	if line == "" {
		return nil, &RuntimeFailure{FullName: req.FullName, Lang: req.Lang, Stderr: stderr, Cause: fmt.Errorf("no output produced")}
	}

	var raw RawResult
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, &RuntimeFailure{FullName: req.FullName, Lang: req.Lang, Stderr: stderr, Cause: fmt.Errorf("parsing BenchResult JSON: %w (line: %q)", err, line)}
	}

	return &Result{
		Raw:        &raw,
		SourcePath: srcPath,
		Stdout:     stdout,
		Stderr:     stderr,
		Duration:   duration,
	}, nil
}

// execute runs name/args with workDir as cwd, optionally injecting
// ANVIL_RPC_URL, and captures stdout/stderr separately (spec §4.F).
func (r *Runner) execute(ctx context.Context, name string, args []string, workDir, anvilURL string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir
	if anvilURL != "" {
		cmd.Env = append(cmd.Environ(), "ANVIL_RPC_URL="+anvilURL)
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// lastNonEmptyLine returns the final non-blank line of output, trimmed
// (spec §4.F: "parse the final non-empty stdout line as the BenchResult
// JSON" — a before/after hook or stray println can precede it).
func lastNonEmptyLine(output string) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			return line
		}
	}
	return ""
}
