package service

import (
	"context"
	"sync"

	"github.com/okian/fielddisplay/internal/channel"
	"github.com/okian/fielddisplay/pkg/logger"
)

// Kiosk is the headless page the display runs in. Reload and Navigate do
// not act directly; they ask the service to restart the session on the
// page's current location.
type Kiosk struct {
	mu      sync.RWMutex
	loc     channel.Location
	restart chan struct{}
	logger  logger.Logger
}

// NewKiosk creates a page at loc.
func NewKiosk(loc channel.Location, l logger.Logger) *Kiosk {
	if l == nil {
		l = logger.Nop()
	}
	return &Kiosk{loc: loc, restart: make(chan struct{}, 1), logger: l}
}

// Location returns where the page is now.
func (k *Kiosk) Location() channel.Location {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.loc
}

// Reload restarts the page where it is.
func (k *Kiosk) Reload(ctx context.Context) {
	k.logger.Info(ctx, "page reload", logger.String("location", k.Location().String()))
	k.signal()
}

// Navigate moves the page to a same-origin target and restarts it there.
// A target that does not parse leaves the page where it is.
func (k *Kiosk) Navigate(ctx context.Context, target string) {
	k.mu.Lock()
	next, err := k.loc.Resolve(target)
	if err == nil {
		k.loc = next
	}
	k.mu.Unlock()

	if err != nil {
		k.logger.Warn(ctx, "ignoring navigation", logger.String("target", target), logger.Error(err))
		return
	}
	k.logger.Info(ctx, "page navigate", logger.String("location", next.String()))
	k.signal()
}

// Restarts delivers one value per pending restart. Requests made while one
// is already pending are folded into it.
func (k *Kiosk) Restarts() <-chan struct{} {
	return k.restart
}

func (k *Kiosk) signal() {
	select {
	case k.restart <- struct{}{}:
	default:
	}
}
