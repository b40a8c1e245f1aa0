package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func pidPath(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watch.pid")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write PID file: %v", err)
		}
	}
	return path
}

// deadPID is far above the default pid_max, so no live process has it.
const deadPID = 99999999

func TestIsDaemonRunning(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantRunning bool
		wantRemoved bool
	}{
		{"no PID file", "", false, false},
		{"current process", strconv.Itoa(os.Getpid()) + "\n", true, false},
		{"dead process", strconv.Itoa(deadPID) + "\n", false, true},
		{"garbage", "not-a-number\n", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := pidPath(t, tt.content)

			running, err := IsDaemonRunning(path)
			if err != nil {
				t.Fatalf("IsDaemonRunning() error = %v", err)
			}
			if running != tt.wantRunning {
				t.Errorf("IsDaemonRunning() = %v, want %v", running, tt.wantRunning)
			}

			_, statErr := os.Stat(path)
			if removed := os.IsNotExist(statErr); tt.content != "" && removed != tt.wantRemoved {
				t.Errorf("PID file removed = %v, want %v", removed, tt.wantRemoved)
			}
		})
	}
}

func TestStopDaemon_NotRunning(t *testing.T) {
	err := StopDaemon(pidPath(t, ""))
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("StopDaemon() error = %v, want ErrDaemonNotRunning", err)
	}
}

func TestStopDaemon_StalePID(t *testing.T) {
	path := pidPath(t, strconv.Itoa(deadPID))

	if err := StopDaemon(path); !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("StopDaemon() error = %v, want ErrDaemonNotRunning", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("stale PID file was not removed")
	}
}

func TestStopDaemon_InvalidPID(t *testing.T) {
	err := StopDaemon(pidPath(t, "invalid\n"))
	if err == nil || errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("StopDaemon() error = %v, want a parse error", err)
	}
}

func TestStartDaemon_AlreadyRunning(t *testing.T) {
	path := pidPath(t, strconv.Itoa(os.Getpid()))
	out := filepath.Join(t.TempDir(), "watch.out")

	if err := StartDaemon(path, out); err == nil {
		t.Error("StartDaemon() expected error for already running daemon, got nil")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("StartDaemon() should not touch the output file when refusing to start")
	}
}

func TestStartDaemon_InvalidOutputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing-dir", "watch.out")

	if err := StartDaemon(pidPath(t, ""), out); err == nil {
		t.Error("StartDaemon() expected error for unwritable output path, got nil")
	}
}

func TestWritePID(t *testing.T) {
	path := pidPath(t, "")

	if err := writePID(path, 4242); err != nil {
		t.Fatalf("writePID() error = %v", err)
	}
	pid, err := readPID(path)
	if err != nil || pid != 4242 {
		t.Errorf("readPID() = %d, %v; want 4242", pid, err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(path), ".watch.pid.tmp")); !os.IsNotExist(err) {
		t.Error("temp PID file left behind")
	}
}

func TestStop_BeforeStart(t *testing.T) {
	dir := t.TempDir()
	w, err := New(&fakeIngester{}, filepath.Join(dir, "sessions.jsonl"), filepath.Join(dir, "spool.offset"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() before Start() error = %v, want nil", err)
	}
}
