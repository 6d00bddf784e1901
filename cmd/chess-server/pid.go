package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// managePIDFile writes the process ID to path. With lock set it holds an
// exclusive flock so a second server refuses to start. The returned
// cleanup removes the file.
func managePIDFile(path string, lock bool) (func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		if lock {
			if err := checkRunning(path); err != nil {
				return nil, err
			}
		}
		// Truncated only once the lock is held
		file, err = os.OpenFile(path, os.O_WRONLY, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}

	if lock {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			file.Close()
			if errors.Is(err, syscall.EWOULDBLOCK) {
				return nil, errors.New("another instance holds the PID lock")
			}
			return nil, fmt.Errorf("lock PID file: %w", err)
		}
	}

	if err = file.Truncate(0); err == nil {
		_, err = fmt.Fprintf(file, "%d\n", os.Getpid())
	}
	if err == nil {
		err = file.Sync()
	}
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write PID file: %w", err)
	}

	return func() {
		file.Close() // releases the flock
		os.Remove(path)
	}, nil
}

// checkRunning fails when the PID recorded at path belongs to a live
// process. A dead or unreadable owner leaves the file to be overwritten.
func checkRunning(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return nil
	}

	// FindProcess always succeeds on Unix; signal 0 probes liveness
	proc, _ := os.FindProcess(pid)
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("process %d exists but cannot be signalled: %w", pid, err)
	}
	if pid == os.Getpid() {
		return nil
	}
	return fmt.Errorf("process %d is already running", pid)
}
