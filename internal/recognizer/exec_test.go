package recognizer

import (
	"os/exec"
	"sync"
	"testing"
	"time"
)

// recorder collects handler calls from a spawned process.
type recorder struct {
	mu    sync.Mutex
	lines []string
	exit  chan error
}

func newRecorder() *recorder {
	return &recorder{exit: make(chan error, 1)}
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnLine: func(line string) {
			r.mu.Lock()
			r.lines = append(r.lines, line)
			r.mu.Unlock()
		},
		OnExit: func(err error) { r.exit <- err },
	}
}

func (r *recorder) waitExit(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.exit:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for OnExit")
		return nil
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecSpawnerStreamsLines(t *testing.T) {
	requireShell(t)

	rec := newRecorder()
	s := &ExecSpawner{}
	p, err := s.Spawn("sh", []string{"-c", "echo '>>> banner'; echo hello world; echo; echo '  padded  '"}, rec.handlers())
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if p.PID() <= 0 {
		t.Errorf("PID() = %d, want > 0", p.PID())
	}

	if err := rec.waitExit(t); err != nil {
		t.Errorf("OnExit err = %v, want nil", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	want := []string{">>> banner", "hello world", "", "  padded  "}
	if len(rec.lines) != len(want) {
		t.Fatalf("lines = %q, want %q", rec.lines, want)
	}
	for i := range want {
		if rec.lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, rec.lines[i], want[i])
		}
	}
}

func TestExecSpawnerNonZeroExit(t *testing.T) {
	requireShell(t)

	rec := newRecorder()
	s := &ExecSpawner{}
	if _, err := s.Spawn("sh", []string{"-c", "exit 3"}, rec.handlers()); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	err := rec.waitExit(t)
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("OnExit err = %v (%T), want *exec.ExitError", err, err)
	}
	if exitErr.ExitCode() != 3 {
		t.Errorf("ExitCode() = %d, want 3", exitErr.ExitCode())
	}
}

func TestExecSpawnerTerminate(t *testing.T) {
	requireShell(t)

	rec := newRecorder()
	s := &ExecSpawner{}
	p, err := s.Spawn("sh", []string{"-c", "echo ready; exec sleep 30"}, rec.handlers())
	if err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}

	if err := p.Terminate(); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}

	if err := rec.waitExit(t); err == nil {
		t.Error("OnExit err = nil, want signal exit error")
	}
}

func TestExecSpawnerEnvAndDir(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	rec := newRecorder()
	s := &ExecSpawner{
		Dir: dir,
		Env: map[string]string{"VC_TEST_VALUE": "from-config"},
	}
	if _, err := s.Spawn("sh", []string{"-c", "echo $VC_TEST_VALUE; pwd"}, rec.handlers()); err != nil {
		t.Fatalf("Spawn() error = %v", err)
	}
	if err := rec.waitExit(t); err != nil {
		t.Fatalf("OnExit err = %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.lines) != 2 {
		t.Fatalf("lines = %q, want 2 lines", rec.lines)
	}
	if rec.lines[0] != "from-config" {
		t.Errorf("env line = %q, want %q", rec.lines[0], "from-config")
	}
	if rec.lines[1] == "" {
		t.Error("pwd line should not be empty")
	}
}

func TestExecSpawnerMissingBinary(t *testing.T) {
	rec := newRecorder()
	s := &ExecSpawner{}
	p, err := s.Spawn("/nonexistent/python3", []string{"VoiceCommander/portable_commander.py"}, rec.handlers())
	if err == nil {
		t.Fatal("Spawn() should fail for a missing interpreter")
	}
	if p != nil {
		t.Errorf("Spawn() process = %v, want nil", p)
	}

	select {
	case <-rec.exit:
		t.Error("OnExit should not be called when the process never started")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEnvListSorted(t *testing.T) {
	got := envList(map[string]string{"B": "2", "A": "1"})
	if len(got) != 2 || got[0] != "A=1" || got[1] != "B=2" {
		t.Errorf("envList() = %v, want [A=1 B=2]", got)
	}
}
