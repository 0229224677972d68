// Package systemd reports service state to systemd for Type=notify units.
// Outside systemd every call is a no-op.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/videosqueeze/internal/logging"
)

// Ready tells systemd the service finished starting. status is shown by
// systemctl status.
func Ready(status string) {
	notify(daemon.SdNotifyReady, "STATUS="+status)
}

// Stopping tells systemd shutdown has begun.
func Stopping() {
	notify(daemon.SdNotifyStopping)
}

// Status updates the free-form status line.
func Status(status string) {
	notify("STATUS=" + status)
}

func notify(states ...string) {
	for _, state := range states {
		if _, err := daemon.SdNotify(false, state); err != nil {
			logging.GetLogger("systemd").Debug("sd_notify failed", "state", state, "error", err)
			return
		}
	}
}

// RunWatchdog pings the watchdog at half the interval systemd configured
// until ctx ends. It returns at once when WatchdogSec is unset.
func RunWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			notify(daemon.SdNotifyWatchdog)
		}
	}
}
