package fieldsim

import (
	"github.com/okian/fielddisplay/internal/domain/model"
	"github.com/okian/fielddisplay/internal/sponsor"
	"github.com/okian/fielddisplay/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithChannelPath sets the websocket path displays connect to.
func WithChannelPath(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.channelPath = path
		}
	}
}

// WithSlides sets the sponsor slides served to displays.
func WithSlides(slides []sponsor.Slide) Option {
	return func(s *Server) {
		s.slides = slides
	}
}

// WithGreeting sets messages sent to every display as soon as it connects,
// the way the field server replays its current state.
func WithGreeting(envs ...model.Envelope) Option {
	return func(s *Server) {
		s.greeting = envs
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
