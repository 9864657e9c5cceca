package capture

import (
	"bytes"
	"os"
	"os/exec"
)

// proc is the slice of a running subprocess the supervisor needs. It is an
// interface so tests can stand in a scripted process.
type proc interface {
	// Interrupt asks the process to finish cleanly. ffmpeg treats it as
	// "stop capturing and write the container trailer".
	Interrupt() error
	Kill() error
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Stderr returns whatever the process wrote to stderr, for diagnostics
	// after an unexpected exit.
	Stderr() string
}

type execProc struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer
	done   chan struct{}
}

func startProc(bin string, args []string) (proc, error) {
	cmd := exec.Command(bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProc{cmd: cmd, stderr: &stderr, done: make(chan struct{})}
	go func() {
		cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *execProc) Interrupt() error {
	return p.cmd.Process.Signal(os.Interrupt)
}

func (p *execProc) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *execProc) Done() <-chan struct{} {
	return p.done
}

func (p *execProc) Stderr() string {
	return p.stderr.String()
}
