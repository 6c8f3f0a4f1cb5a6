//go:build linux

package daemon

import (
	sdnotify "github.com/coreos/go-systemd/v22/daemon"

	"github.com/chimekit/chime/pkg/logx"
)

// notifyReady tells systemd the daemon is up. Outside a Type=notify unit
// SdNotify reports (false, nil) and this is a no-op.
func notifyReady(log logx.Logger) {
	sent, err := sdnotify.SdNotify(false, sdnotify.SdNotifyReady)
	if err != nil {
		log.Debug("systemd notify failed", logx.Any("err", err))
		return
	}
	if sent {
		log.Debug("systemd readiness notified")
	}
}

func notifyStopping(log logx.Logger) {
	sent, err := sdnotify.SdNotify(false, sdnotify.SdNotifyStopping)
	if err != nil {
		log.Debug("systemd notify failed", logx.Any("err", err))
		return
	}
	if sent {
		log.Debug("systemd stop notified")
	}
}
