package engine

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// Process is a running engine with line-oriented pipes.
type Process interface {
	Stdin() io.Writer
	Stdout() io.Reader
	Kill() error
	Wait() error
}

// Launcher starts one engine process per request.
type Launcher interface {
	Launch(ctx context.Context) (Process, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Process, error)

func (f LauncherFunc) Launch(ctx context.Context) (Process, error) {
	return f(ctx)
}

// ExecLauncher runs an engine binary, stockfish unless Path is set.
type ExecLauncher struct {
	Path string
	Args []string
}

const defaultEnginePath = "stockfish"

func (l ExecLauncher) Launch(ctx context.Context) (Process, error) {
	path := l.Path
	if path == "" {
		path = defaultEnginePath
	}
	cmd := exec.CommandContext(ctx, path, l.Args...)
	cmd.SysProcAttr = processGroup()
	cmd.Cancel = func() error { return killGroup(cmd.Process) }
	cmd.WaitDelay = killWait

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}

	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (p *execProcess) Stdin() io.Writer  { return p.stdin }
func (p *execProcess) Stdout() io.Reader { return p.stdout }

// Kill closes both pipes and kills the engine with any children it spawned.
func (p *execProcess) Kill() error {
	_ = p.stdin.Close()
	_ = p.stdout.Close()
	return killGroup(p.cmd.Process)
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}
