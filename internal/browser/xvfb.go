package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// x11SocketDir holds the Unix sockets of running X servers.
var x11SocketDir = "/tmp/.X11-unix"

const displayReadyTimeout = 5 * time.Second

// display is the X server a headful Chrome draws into. cmd is nil when a
// server already listening on name was reused.
type display struct {
	name string
	cmd  *exec.Cmd
}

// socketPath maps a display name such as ":99" or ":99.0" to its X11 socket.
func socketPath(name string) (string, error) {
	n, ok := strings.CutPrefix(name, ":")
	if i := strings.IndexByte(n, '.'); i >= 0 {
		n = n[:i]
	}
	if _, err := strconv.Atoi(n); !ok || err != nil {
		return "", fmt.Errorf("invalid display %q", name)
	}
	return filepath.Join(x11SocketDir, "X"+n), nil
}

// startDisplay reuses the X server on name or launches Xvfb there, and
// waits until its socket accepts clients.
func startDisplay(ctx context.Context, name string, log *slog.Logger) (*display, error) {
	sock, err := socketPath(name)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(sock); err == nil {
		log.Info("browser: reusing x display", "display", name)
		return &display{name: name}, nil
	}

	cmd := exec.Command("Xvfb", name, "-screen", "0", "1920x1080x24", "-ac", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start xvfb: %w", err)
	}
	d := &display{name: name, cmd: cmd}
	if err := waitForSocket(ctx, sock, displayReadyTimeout); err != nil {
		d.stop(log)
		return nil, err
	}
	log.Info("browser: xvfb started", "display", name, "pid", cmd.Process.Pid)
	return d, nil
}

func waitForSocket(ctx context.Context, path string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("xvfb socket %s not ready: %w", path, ctx.Err())
		case <-tick.C:
		}
	}
}

func (d *display) env() string { return "DISPLAY=" + d.name }

// stop kills an Xvfb this process started. A reused display is left running.
func (d *display) stop(log *slog.Logger) {
	if d == nil || d.cmd == nil || d.cmd.Process == nil {
		return
	}
	if err := d.cmd.Process.Kill(); err != nil {
		log.Debug("browser: kill xvfb", "error", err)
	}
	_ = d.cmd.Wait()
	log.Info("browser: xvfb stopped", "display", d.name)
}
