package app

import "github.com/coreos/go-systemd/v22/daemon"

const (
	sdReady    = daemon.SdNotifyReady
	sdWatchdog = daemon.SdNotifyWatchdog
	sdStopping = daemon.SdNotifyStopping
)

// Notifier reports service state to the init system.
type Notifier interface {
	Notify(state string) (bool, error)
}

// systemdNotifier is a no-op outside systemd (NOTIFY_SOCKET unset).
type systemdNotifier struct{}

func (systemdNotifier) Notify(state string) (bool, error) {
	return daemon.SdNotify(false, state)
}
