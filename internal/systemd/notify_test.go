package systemd

import (
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// listen points NOTIFY_SOCKET at a datagram socket and returns it.
func listen(t *testing.T) *net.UnixConn {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Skipf("unixgram sockets unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	t.Setenv("NOTIFY_SOCKET", path)
	return conn
}

func read(t *testing.T, conn *net.UnixConn) string {
	t.Helper()
	buf := make([]byte, 256)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read notification: %v", err)
	}
	return string(buf[:n])
}

func TestReady(t *testing.T) {
	conn := listen(t)

	Ready("listening on :8090")

	if got := read(t, conn); got != "READY=1" {
		t.Errorf("first message = %q, want READY=1", got)
	}
	if got := read(t, conn); got != "STATUS=listening on :8090" {
		t.Errorf("second message = %q", got)
	}
}

func TestStopping(t *testing.T) {
	conn := listen(t)
	Stopping()
	if got := read(t, conn); got != "STOPPING=1" {
		t.Errorf("message = %q, want STOPPING=1", got)
	}
}

func TestWatchdog(t *testing.T) {
	conn := listen(t)
	t.Setenv("WATCHDOG_USEC", "100000")
	t.Setenv("WATCHDOG_PID", "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunWatchdog(ctx)
		close(done)
	}()

	if got := read(t, conn); !strings.HasPrefix(got, "WATCHDOG=1") {
		t.Errorf("message = %q, want WATCHDOG=1", got)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop")
	}
}

func TestNoSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")
	// Must neither block nor panic.
	Ready("ok")
	Status("ok")
	Stopping()
	RunWatchdog(context.Background())
}
