package recognizer

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
)

const maxLineBytes = 1 << 20

// ExecSpawner starts recognizers as child processes via os/exec.
type ExecSpawner struct {
	Dir string            // working directory; empty inherits ours
	Env map[string]string // added to the inherited environment
}

// Compile-time interface satisfaction check.
var _ Spawner = (*ExecSpawner)(nil)

// Spawn starts name with args and begins streaming its stdout to h.
// An error is returned only if the process could not be started; in that
// case no handler is ever called.
func (s *ExecSpawner) Spawn(name string, args []string, h Handlers) (Process, error) {
	cmd := exec.Command(name, args...) //nolint:gosec // interpreter and script come from the user's config
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), envList(s.Env)...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recognizer: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("recognizer: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("recognizer: start %s: %w", name, err)
	}

	p := &execProcess{cmd: cmd}
	pid := cmd.Process.Pid

	var pipes sync.WaitGroup
	pipes.Add(2)
	go func() {
		defer pipes.Done()
		scanLines(stdout, func(line string) {
			if h.OnLine != nil {
				h.OnLine(line)
			}
		})
	}()
	go func() {
		defer pipes.Done()
		scanLines(stderr, func(line string) {
			slog.Debug("[recognizer] stderr", "pid", pid, "line", line)
		})
	}()

	go func() {
		// Wait closes the pipes, so both readers must drain first.
		pipes.Wait()
		err := cmd.Wait()
		if h.OnExit != nil {
			h.OnExit(err)
		}
	}()

	return p, nil
}

// scanLines calls fn for every line read from r until EOF or a read error.
func scanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("[recognizer] output read failed", "error", err)
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}

// execProcess wraps a started exec.Cmd.
type execProcess struct {
	cmd *exec.Cmd
}

// Terminate sends SIGTERM, falling back to Kill where signals are unsupported.
func (p *execProcess) Terminate() error {
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if killErr := p.cmd.Process.Kill(); killErr != nil {
			return fmt.Errorf("recognizer: terminate pid %d: %w", p.cmd.Process.Pid, killErr)
		}
	}
	return nil
}

func (p *execProcess) PID() int {
	return p.cmd.Process.Pid
}
