// Package audience holds the handler table of the audience display and the
// board those handlers keep current.
package audience

import (
	"context"
	"fmt"

	"github.com/okian/fielddisplay/internal/channel"
	"github.com/okian/fielddisplay/internal/domain/model"
	"github.com/okian/fielddisplay/internal/domain/screen"
	"github.com/okian/fielddisplay/pkg/logger"
	"github.com/okian/fielddisplay/pkg/metrics"
)

// Requester accepts screen change requests.
type Requester interface {
	RequestScreen(ctx context.Context, target screen.Screen) error
}

// Handlers returns the audience display's handler table.
func Handlers(req Requester, board *Board, l logger.Logger) channel.Handlers {
	if l == nil {
		l = logger.Nop()
	}

	return channel.Handlers{
		"audience_display_mode": func(ctx context.Context, env model.Envelope) {
			target, err := screen.Parse(env.Text())
			if err != nil {
				metrics.RecordErrorByType("unknown_screen", "warning")
				l.Warn(ctx, "ignoring unknown screen", logger.String("screen", env.Text()))
				return
			}
			if err := req.RequestScreen(ctx, target); err != nil {
				l.Warn(ctx, "screen request rejected", logger.String("screen", target.String()), logger.Error(err))
			}
		},
		"match_load":     decoded(l, board.SetMatchLoad),
		"match_time":     decoded(l, board.SetMatchTime),
		"match_timing":   decoded(l, board.SetMatchTiming),
		"realtime_score": decoded(l, board.SetRealtimeScore),
		"score_posted":   decoded(l, board.SetScorePosted),
		"lower_third":    decoded(l, board.SetLowerThird),
		"alliance_selection": decoded(l, func(a AllianceSelection) {
			for i := range a.Alliances {
				a.Alliances[i].Index = i + 1
			}
			board.SetAllianceSelection(a)
		}),
		"play_sound": func(ctx context.Context, env model.Envelope) {
			sound := env.Text()
			if sound == "" {
				return
			}
			l.Debug(ctx, "play sound", logger.String("sound", sound))
			board.SetLastSound(sound)
		},
	}
}

// decoded adapts a typed setter into a handler. Payloads that do not decode
// are logged and dropped.
func decoded[T any](l logger.Logger, set func(T)) channel.Handler {
	return func(ctx context.Context, env model.Envelope) {
		var v T
		if err := env.Unmarshal(&v); err != nil {
			metrics.RecordErrorByType("bad_payload", "warning")
			l.Warn(ctx, "dropping undecodable payload",
				logger.String("type", env.Type),
				logger.Error(fmt.Errorf("%w: %w", ErrBadPayload, err)),
			)
			return
		}
		set(v)
	}
}
