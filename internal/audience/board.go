package audience

import (
	"sync"
	"time"
)

// Clock is the rendered match clock.
type Clock struct {
	State        string `json:"state"`
	StateText    string `json:"state_text"`
	CountdownSec int    `json:"countdown_sec"`
	Display      string `json:"display"`
}

// Snapshot is a copy of everything the board holds.
type Snapshot struct {
	MatchLoad         *MatchLoad         `json:"match_load,omitempty"`
	MatchTime         *MatchTime         `json:"match_time,omitempty"`
	MatchTiming       MatchTiming        `json:"match_timing"`
	Clock             *Clock             `json:"clock,omitempty"`
	RealtimeScore     *RealtimeScore     `json:"realtime_score,omitempty"`
	ScorePosted       *ScorePosted       `json:"score_posted,omitempty"`
	LowerThird        *LowerThirdText    `json:"lower_third,omitempty"`
	ShowLowerThird    bool               `json:"show_lower_third"`
	AllianceSelection *AllianceSelection `json:"alliance_selection,omitempty"`
	LastSound         string             `json:"last_sound,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Board is the audience view-model: the latest payload of every kind the
// display renders. It is safe for concurrent use.
type Board struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewBoard creates an empty board with the default match timing.
func NewBoard() *Board {
	return &Board{snap: Snapshot{MatchTiming: DefaultMatchTiming}, now: time.Now}
}

func (b *Board) update(fn func(s *Snapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.snap)
	b.snap.UpdatedAt = b.now()
}

// SetMatchLoad stores the match_load payload of the match on deck.
func (b *Board) SetMatchLoad(m MatchLoad) {
	b.update(func(s *Snapshot) { s.MatchLoad = &m })
}

// SetMatchTime stores the latest match state and elapsed time.
func (b *Board) SetMatchTime(m MatchTime) {
	b.update(func(s *Snapshot) { s.MatchTime = &m })
}

// SetMatchTiming replaces the period lengths used by the countdown.
func (b *Board) SetMatchTiming(m MatchTiming) {
	b.update(func(s *Snapshot) { s.MatchTiming = m })
}

// SetRealtimeScore stores the live score of the running match.
func (b *Board) SetRealtimeScore(r RealtimeScore) {
	b.update(func(s *Snapshot) { s.RealtimeScore = &r })
}

// SetScorePosted stores the final result of the last committed match.
func (b *Board) SetScorePosted(p ScorePosted) {
	b.update(func(s *Snapshot) { s.ScorePosted = &p })
}

// SetLowerThird applies a lower_third payload. A nil text keeps the
// previous text and only changes visibility.
func (b *Board) SetLowerThird(l LowerThird) {
	b.update(func(s *Snapshot) {
		if l.LowerThird != nil {
			text := *l.LowerThird
			s.LowerThird = &text
		}
		s.ShowLowerThird = l.ShowLowerThird
	})
}

// SetAllianceSelection stores the alliance picks and the unpicked teams.
func (b *Board) SetAllianceSelection(a AllianceSelection) {
	b.update(func(s *Snapshot) { s.AllianceSelection = &a })
}

// SetLastSound records the name of the last play_sound cue.
func (b *Board) SetLastSound(sound string) {
	b.update(func(s *Snapshot) { s.LastSound = sound })
}

// Clock renders the match clock from the last match_time and timing, or
// nil before the first match_time.
func (b *Board) Clock() *Clock {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.clockLocked()
}

func (b *Board) clockLocked() *Clock {
	if b.snap.MatchTime == nil {
		return nil
	}
	mt := b.snap.MatchTime
	countdown := b.snap.MatchTiming.Countdown(mt.MatchState, mt.MatchTimeSec)
	return &Clock{
		State:        mt.MatchState.String(),
		StateText:    mt.MatchState.Text(),
		CountdownSec: countdown,
		Display:      FormatCountdown(countdown),
	}
}

// Snapshot returns a copy of the board.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.snap
	s.Clock = b.clockLocked()
	return s
}
