package interceptor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrHostUnavailable is returned when the host never exposes a receiver
// within the install window.
var ErrHostUnavailable = errors.New("host receiver not available")

// Host is anything that delivers protocol chunks through a replaceable receiver.
type Host interface {
	Receiver() Receiver
	SetReceiver(Receiver)
}

// InstallOptions bounds the wait for a host that is not ready yet.
type InstallOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// DefaultInstallOptions watches for thirty seconds.
var DefaultInstallOptions = InstallOptions{
	Timeout:      30 * time.Second,
	PollInterval: 100 * time.Millisecond,
}

// Install wraps the host's receiver with ic. If the host has no receiver
// yet, it keeps checking until one appears, the timeout expires or ctx ends.
func Install(ctx context.Context, host Host, ic *Interceptor, opts InstallOptions) error {
	if tryInstall(host, ic) {
		return nil
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultInstallOptions.Timeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultInstallOptions.PollInterval
	}

	ic.logger.Debug("Host not ready, watching", zap.Duration("timeout", opts.Timeout))

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			// last chance, mirrors a check right after the watch ends
			if tryInstall(host, ic) {
				return nil
			}
			return ErrHostUnavailable
		case <-ticker.C:
			if tryInstall(host, ic) {
				return nil
			}
		}
	}
}

func tryInstall(host Host, ic *Interceptor) bool {
	original := host.Receiver()
	if original == nil {
		return false
	}
	host.SetReceiver(ic.Wrap(original))
	return true
}
