package channel

import (
	"context"

	"github.com/okian/fielddisplay/internal/domain/model"
	"github.com/okian/fielddisplay/pkg/logger"
)

// Page is the document that owns the channel.
type Page interface {
	// Location returns where the page is now.
	Location() Location
	// Reload restarts the page on its current location.
	Reload(ctx context.Context)
	// Navigate moves the page to a same-origin path+query.
	Navigate(ctx context.Context, target string)
}

// Handler consumes one inbound envelope. Handlers run on the read
// goroutine, one at a time, in receipt order.
type Handler func(ctx context.Context, env model.Envelope)

// Handlers maps an envelope type to its handler.
type Handlers map[string]Handler

// DefaultHandlers returns the handlers every display page carries.
func DefaultHandlers(page Page, l logger.Logger) Handlers {
	return Handlers{
		"error": func(ctx context.Context, env model.Envelope) {
			l.Error(ctx, "server reported an error", logger.String("payload", env.Text()))
		},
		"reload": func(ctx context.Context, env model.Envelope) {
			target := env.Text()
			if target != "" && target != page.Location().DisplayID() {
				return
			}
			l.Info(ctx, "reload requested", logger.String("display", target))
			page.Reload(ctx)
		},
		"displayConfiguration": func(ctx context.Context, env model.Envelope) {
			target := env.Text()
			if target == "" || target == page.Location().PathQuery() {
				return
			}
			l.Info(ctx, "display configuration changed", logger.String("target", target))
			page.Navigate(ctx, target)
		},
	}
}

// merge returns defaults overlaid with custom.
func merge(defaults, custom Handlers) Handlers {
	out := make(Handlers, len(defaults)+len(custom))
	for k, h := range defaults {
		out[k] = h
	}
	for k, h := range custom {
		if h != nil {
			out[k] = h
		}
	}
	return out
}
