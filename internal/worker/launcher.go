// Package worker launches the external worker process that actually
// performs a generation's task (C7 spawn step 5: "Launch the external
// worker (out of scope) with the workspace paths as inputs"). The
// orchestrator only needs to start the process and hand it its paths; what
// the worker does with them is outside this repo's concern.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/harrison/gasctl/internal/config"
)

// gasctlTmpDir is a clean temp directory for worker invocations, kept
// separate from the user's TMPDIR so stray editor/IDE socket files there
// cannot reach a worker's environment.
var gasctlTmpDir string

func init() {
	gasctlTmpDir = filepath.Join(os.TempDir(), "gasctl-worker")
	os.MkdirAll(gasctlTmpDir, 0755)
}

// Paths are the workspace locations a spawned generation needs to know
// about, substituted into the worker command template.
type Paths struct {
	Workspace  string
	Generation string // generations/gen-{N}
	Status     string // generations/gen-{N}/status.json
	Transfer   string // generations/gen-{N}/transfer.json, empty if none
	Output     string // generations/gen-{N}/output.ndjson
	Prompt     string // rendered prompt text, empty if the launcher should not inject one
}

// Handle identifies a running worker process so the caller can check on it
// later without blocking on its exit.
type Handle struct {
	GenerationNumber int
	PID              int
	cmd              *exec.Cmd
	done             chan error
	err              error
}

// Wait blocks until the worker process exits and returns its error, if any.
// Safe to call more than once; subsequent calls return the same result.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Running reports whether the worker process is still running, without
// blocking.
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Launcher starts external worker processes per Config.Worker.
type Launcher struct {
	cfg config.WorkerConfig
}

// New builds a Launcher from the worker section of the orchestrator config.
func New(cfg config.WorkerConfig) *Launcher {
	return &Launcher{cfg: cfg}
}

// Launch starts the worker for generation gen with the given paths,
// substituting the {{...}} placeholders in the configured command and args.
// The returned Handle can be waited on independently. With a configured
// Timeout the process runs under its own deadline, detached from ctx, and is
// killed once Timeout elapses; with no Timeout it runs under ctx and is
// killed when ctx is cancelled.
func (l *Launcher) Launch(ctx context.Context, gen int, paths Paths) (*Handle, error) {
	if l.cfg.Command == "" {
		return nil, fmt.Errorf("launch generation %d: no worker command configured", gen)
	}

	vars := substitutionVars(gen, paths)
	args := make([]string, len(l.cfg.Args))
	for i, a := range l.cfg.Args {
		args[i] = substitute(a, vars)
	}

	startCtx := ctx
	var cancel context.CancelFunc
	if l.cfg.Timeout > 0 {
		startCtx, cancel = context.WithTimeout(context.Background(), l.cfg.Timeout)
	}

	cmd := exec.CommandContext(startCtx, substitute(l.cfg.Command, vars), args...)
	setCleanEnv(cmd)
	cmd.Dir = paths.Workspace

	outFile, err := os.OpenFile(filepath.Join(paths.Generation, "worker.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		cmd.Stdout = outFile
		cmd.Stderr = outFile
	}

	if err := cmd.Start(); err != nil {
		if cancel != nil {
			cancel()
		}
		if outFile != nil {
			outFile.Close()
		}
		return nil, fmt.Errorf("launch generation %d worker: %w", gen, err)
	}

	h := &Handle{GenerationNumber: gen, PID: cmd.Process.Pid, cmd: cmd, done: make(chan error, 1)}
	go func() {
		err := cmd.Wait()
		if cancel != nil {
			cancel()
		}
		if outFile != nil {
			outFile.Close()
		}
		h.err = err
		close(h.done)
	}()

	return h, nil
}

// InvokeSync runs the worker command to completion and returns its combined
// output, for short-lived worker commands (e.g. a single-shot CLI call)
// rather than long-running background processes. It applies the
// configured timeout directly to ctx.
func (l *Launcher) InvokeSync(ctx context.Context, gen int, paths Paths) ([]byte, error) {
	if l.cfg.Command == "" {
		return nil, fmt.Errorf("invoke generation %d: no worker command configured", gen)
	}

	runCtx := ctx
	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	vars := substitutionVars(gen, paths)
	args := make([]string, len(l.cfg.Args))
	for i, a := range l.cfg.Args {
		args[i] = substitute(a, vars)
	}

	cmd := exec.CommandContext(runCtx, substitute(l.cfg.Command, vars), args...)
	setCleanEnv(cmd)
	cmd.Dir = paths.Workspace

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Run(); err != nil {
		return buf.Bytes(), fmt.Errorf("invoke generation %d worker: %w", gen, err)
	}
	return buf.Bytes(), nil
}

func substitutionVars(gen int, paths Paths) map[string]string {
	return map[string]string{
		"workspace":  paths.Workspace,
		"generation": paths.Generation,
		"status":     paths.Status,
		"transfer":   paths.Transfer,
		"output":     paths.Output,
		"prompt":     paths.Prompt,
		"gen_number": strconv.Itoa(gen),
	}
}

func substitute(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

// setCleanEnv configures cmd to use a clean TMPDIR, so editor/IDE socket
// files in the caller's temp directory cannot crash worker CLIs that are
// sensitive to unexpected files there.
func setCleanEnv(cmd *exec.Cmd) {
	cmd.Env = os.Environ()

	found := false
	for i, e := range cmd.Env {
		if strings.HasPrefix(e, "TMPDIR=") {
			cmd.Env[i] = "TMPDIR=" + gasctlTmpDir
			found = true
			break
		}
	}
	if !found {
		cmd.Env = append(cmd.Env, "TMPDIR="+gasctlTmpDir)
	}
}

// GenerationPaths computes the standard Paths for generation n within
// workspace, matching the generation directory layout
// (generations/gen-{N}/...).
func GenerationPaths(workspace string, n int) Paths {
	genDir := filepath.Join(workspace, "generations", fmt.Sprintf("gen-%d", n))
	return Paths{
		Workspace:  workspace,
		Generation: genDir,
		Status:     filepath.Join(genDir, "status.json"),
		Transfer:   filepath.Join(genDir, "transfer.json"),
		Output:     filepath.Join(genDir, "output.ndjson"),
	}
}
