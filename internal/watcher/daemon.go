package watcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrDaemonNotRunning is returned by StopDaemon when no live daemon owns the
// PID file.
var ErrDaemonNotRunning = errors.New("daemon not running")

// stopWait bounds how long StopDaemon waits for the daemon to exit.
const stopWait = 5 * time.Second

// StartDaemon re-executes the current binary as "watch --daemon-child"
// followed by extraArgs, in its own session. The child's PID goes to pidFile;
// anything it prints outside the logger (panics, runtime errors) goes to
// outFile.
func StartDaemon(pidFile, outFile string, extraArgs ...string) error {
	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon already running (PID file: %s)", pidFile)
	}

	out, err := os.OpenFile(outFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open daemon output file: %w", err)
	}
	defer out.Close()

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	child := exec.Command(executable, append([]string{"watch", "--daemon-child"}, extraArgs...)...)
	child.Stdout = out
	child.Stderr = out
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}

	if err := writePID(pidFile, child.Process.Pid); err != nil {
		_ = child.Process.Kill()
		return err
	}

	if err := child.Process.Release(); err != nil {
		return fmt.Errorf("failed to release daemon process: %w", err)
	}
	return nil
}

// RunDaemon runs the watcher in the daemon child until SIGTERM or SIGINT,
// then drains the spool one last time and removes pidFile.
func (w *Watcher) RunDaemon(pidFile string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	log.WithFields(log.Fields{"spool": w.spoolPath, "pid": os.Getpid()}).Info("watch daemon started")

	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("shutting down")

	stopErr := w.Stop()
	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("failed to remove PID file")
	}
	if stopErr != nil {
		return fmt.Errorf("failed to stop watcher: %w", stopErr)
	}
	return nil
}

// StopDaemon sends SIGTERM to the daemon and waits for it to exit. A PID
// file naming a dead process is removed and reported as ErrDaemonNotRunning.
func StopDaemon(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		return err
	}
	if !processAlive(pid) {
		_ = os.Remove(pidFile)
		return fmt.Errorf("%w (stale PID %d)", ErrDaemonNotRunning, pid)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process %d: %w", pid, err)
	}

	deadline := time.Now().Add(stopWait)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon (PID %d) did not exit within %s", pid, stopWait)
}

// IsDaemonRunning reports whether pidFile names a live process. Stale or
// unreadable PID files are removed.
func IsDaemonRunning(pidFile string) (bool, error) {
	pid, err := readPID(pidFile)
	switch {
	case errors.Is(err, ErrDaemonNotRunning):
		return false, nil
	case errors.Is(err, strconv.ErrSyntax), errors.Is(err, strconv.ErrRange):
		_ = os.Remove(pidFile)
		return false, nil
	case err != nil:
		return false, err
	}

	if !processAlive(pid) {
		_ = os.Remove(pidFile)
		return false, nil
	}
	return true, nil
}

// readPID parses pidFile. A missing file is ErrDaemonNotRunning.
func readPID(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("%w (no PID file)", ErrDaemonNotRunning)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file %s: %w", pidFile, err)
	}
	return pid, nil
}

// processAlive probes pid with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// writePID stores pid via a temp file and rename so readers never see a
// partial PID.
func writePID(pidFile string, pid int) error {
	tmp := filepath.Join(filepath.Dir(pidFile), "."+filepath.Base(pidFile)+".tmp")
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	if err := os.Rename(tmp, pidFile); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}
