package audience

import (
	"encoding/json"
	"fmt"
)

// MatchState is the field's match state as pushed in match_time.
type MatchState int

// Match states in the order the field moves through them.
const (
	PreMatch      MatchState = iota // teams on the field, match not started
	StartMatch                      // start signal sent
	WarmupPeriod                    // warmup before autonomous
	AutoPeriod                      // autonomous period
	PausePeriod                     // pause between autonomous and teleop
	TeleopPeriod                    // teleoperated period
	PostMatch                       // match over, score pending
	TimeoutActive                   // field timeout running
	PostTimeout                     // field timeout ended
)

var matchStateNames = [...]string{
	"PRE_MATCH",
	"START_MATCH",
	"WARMUP_PERIOD",
	"AUTO_PERIOD",
	"PAUSE_PERIOD",
	"TELEOP_PERIOD",
	"POST_MATCH",
	"TIMEOUT_ACTIVE",
	"POST_TIMEOUT",
}

// String returns the field's name for the state.
func (s MatchState) String() string {
	if s < 0 || int(s) >= len(matchStateNames) {
		return fmt.Sprintf("MatchState(%d)", int(s))
	}
	return matchStateNames[s]
}

// Text is the label shown next to the match clock.
func (s MatchState) Text() string {
	switch s {
	case PreMatch:
		return "PRE-MATCH"
	case StartMatch, WarmupPeriod:
		return "WARMUP"
	case AutoPeriod:
		return "AUTONOMOUS"
	case PausePeriod:
		return "PAUSE"
	case TeleopPeriod:
		return "TELEOPERATED"
	case PostMatch:
		return "POST-MATCH"
	case TimeoutActive, PostTimeout:
		return "TIMEOUT"
	default:
		return ""
	}
}

// MatchType distinguishes playoff matches, which render differently.
type MatchType int

// Match types as numbered by the field server.
const (
	MatchTypeTest          MatchType = iota // test match
	MatchTypePractice                       // practice match
	MatchTypeQualification                  // qualification match
	MatchTypePlayoff                        // playoff match
)

// MatchTiming holds the period lengths used to turn elapsed match time into
// a countdown.
type MatchTiming struct {
	WarmupDurationSec           int `json:"warmup_duration_sec"`
	AutoDurationSec             int `json:"auto_duration_sec"`
	PauseDurationSec            int `json:"pause_duration_sec"`
	TeleopDurationSec           int `json:"teleop_duration_sec"`
	WarningRemainingDurationSec int `json:"warning_remaining_duration_sec"`
	TimeoutDurationSec          int `json:"timeout_duration_sec"`
}

// DefaultMatchTiming is used until the server pushes match_timing.
var DefaultMatchTiming = MatchTiming{
	AutoDurationSec:             15,
	PauseDurationSec:            3,
	TeleopDurationSec:           135,
	WarningRemainingDurationSec: 20,
}

// Countdown returns the seconds left in the current period.
func (mt MatchTiming) Countdown(state MatchState, elapsedSec int) int {
	switch state {
	case PreMatch, StartMatch, WarmupPeriod:
		return mt.AutoDurationSec
	case AutoPeriod:
		return mt.WarmupDurationSec + mt.AutoDurationSec - elapsedSec
	case TeleopPeriod:
		return mt.WarmupDurationSec + mt.AutoDurationSec + mt.PauseDurationSec + mt.TeleopDurationSec - elapsedSec
	case TimeoutActive:
		return mt.TimeoutDurationSec - elapsedSec
	default:
		return 0
	}
}

// FormatCountdown renders seconds as m:ss.
func FormatCountdown(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

// MatchTime is the match_time payload.
type MatchTime struct {
	MatchState   MatchState `json:"match_state"`
	MatchTimeSec int        `json:"match_time_sec"`
}

// Match is the subset of a match record the audience display shows.
type Match struct {
	ID                  int       `json:"id"`
	Type                MatchType `json:"type"`
	ShortName           string    `json:"short_name"`
	LongName            string    `json:"long_name"`
	NameDetail          string    `json:"name_detail"`
	Red1                int       `json:"red1"`
	Red2                int       `json:"red2"`
	Red3                int       `json:"red3"`
	Blue1               int       `json:"blue1"`
	Blue2               int       `json:"blue2"`
	Blue3               int       `json:"blue3"`
	PlayoffRedAlliance  int       `json:"playoff_red_alliance"`
	PlayoffBlueAlliance int       `json:"playoff_blue_alliance"`
}

// Title is the match name with its detail appended, as shown on screen.
func (m Match) Title() string {
	if m.NameDetail == "" {
		return m.LongName
	}
	return m.LongName + " - " + m.NameDetail
}

// IsPlayoff reports whether the match is a playoff match.
func (m Match) IsPlayoff() bool { return m.Type == MatchTypePlayoff }

// Team is a team entry in match_load.
type Team struct {
	ID         int    `json:"id"`
	Nickname   string `json:"nickname"`
	YellowCard bool   `json:"yellow_card"`
}

// Matchup is the playoff series state.
type Matchup struct {
	NumWinsToAdvance int `json:"num_wins_to_advance"`
	RedAllianceWins  int `json:"red_alliance_wins"`
	BlueAllianceWins int `json:"blue_alliance_wins"`
}

// MatchLoad is the match_load payload.
type MatchLoad struct {
	Match            Match            `json:"match"`
	AllowSubstitute  bool             `json:"allow_substitution"`
	IsReplay         bool             `json:"is_replay"`
	Teams            map[string]*Team `json:"teams"`
	Rankings         map[string]int   `json:"rankings"`
	Matchup          *Matchup         `json:"matchup"`
	BreakDescription string           `json:"break_description"`
}

// ShowSeries reports whether the playoff series status should be shown.
func (m MatchLoad) ShowSeries() bool {
	return m.Match.IsPlayoff() && m.Matchup != nil && m.Matchup.NumWinsToAdvance > 1
}

// ScoreSummary is an alliance's score breakdown.
type ScoreSummary struct {
	Score                  int  `json:"score"`
	LeavePoints            int  `json:"leave_points"`
	CoralPoints            int  `json:"coral_points"`
	AlgaePoints            int  `json:"algae_points"`
	BargePoints            int  `json:"barge_points"`
	FoulPoints             int  `json:"foul_points"`
	NumCoralLevelsMet      int  `json:"num_coral_levels_met"`
	NumCoralLevelsGoal     int  `json:"num_coral_levels_goal"`
	AutoBonusRankingPoint  bool `json:"auto_bonus_ranking_point"`
	CoralBonusRankingPoint bool `json:"coral_bonus_ranking_point"`
	BargeBonusRankingPoint bool `json:"barge_bonus_ranking_point"`
}

// AllianceScore is one alliance's side of realtime_score.
type AllianceScore struct {
	ScoreSummary ScoreSummary `json:"score_summary"`
}

// LiveScore is the number shown during the match. Barge points are held
// back until the final score is posted.
func (a AllianceScore) LiveScore() int {
	return a.ScoreSummary.Score - a.ScoreSummary.BargePoints
}

// RealtimeScore is the realtime_score payload.
type RealtimeScore struct {
	Red        AllianceScore `json:"red"`
	Blue       AllianceScore `json:"blue"`
	MatchState MatchState    `json:"match_state"`
}

// ScorePosted is the score_posted payload.
type ScorePosted struct {
	Match               Match        `json:"match"`
	RedScoreSummary     ScoreSummary `json:"red_score_summary"`
	BlueScoreSummary    ScoreSummary `json:"blue_score_summary"`
	RedRankingPoints    int          `json:"red_ranking_points"`
	BlueRankingPoints   int          `json:"blue_ranking_points"`
	RedOffFieldTeamIDs  []int        `json:"red_off_field_team_ids"`
	BlueOffFieldTeamIDs []int        `json:"blue_off_field_team_ids"`
	RedWon              bool         `json:"red_won"`
	BlueWon             bool         `json:"blue_won"`
	RedWins             int          `json:"red_wins"`
	BlueWins            int          `json:"blue_wins"`
	RedDestination      string       `json:"red_destination"`
	BlueDestination     string       `json:"blue_destination"`

	RedCards     json.RawMessage `json:"red_cards,omitempty"`
	BlueCards    json.RawMessage `json:"blue_cards,omitempty"`
	RedRankings  json.RawMessage `json:"red_rankings,omitempty"`
	BlueRankings json.RawMessage `json:"blue_rankings,omitempty"`
}

// LowerThirdText is the text of a lower third.
type LowerThirdText struct {
	ID           int    `json:"id"`
	TopText      string `json:"top_text"`
	BottomText   string `json:"bottom_text"`
	DisplayOrder int    `json:"display_order"`
}

// SingleLine reports whether the lower third renders as one line.
func (t LowerThirdText) SingleLine() bool { return t.BottomText == "" }

// LowerThird is the lower_third payload. A nil LowerThird leaves the
// previous text in place.
type LowerThird struct {
	LowerThird     *LowerThirdText `json:"lower_third"`
	ShowLowerThird bool            `json:"show_lower_third"`
}

// Alliance is one alliance on the alliance selection board.
type Alliance struct {
	Index   int   `json:"index"`
	TeamIDs []int `json:"team_ids"`
}

// RankedTeam is a team in the pick list.
type RankedTeam struct {
	Rank   int  `json:"rank"`
	TeamID int  `json:"team_id"`
	Picked bool `json:"picked"`
}

// AllianceSelection is the alliance_selection payload.
type AllianceSelection struct {
	Alliances        []Alliance   `json:"alliances"`
	ShowTimer        bool         `json:"show_timer"`
	TimeRemainingSec int          `json:"time_remaining_sec"`
	RankedTeams      []RankedTeam `json:"ranked_teams"`
}

// Unpicked returns the ranked teams still available.
func (a AllianceSelection) Unpicked() []RankedTeam {
	out := make([]RankedTeam, 0, len(a.RankedTeams))
	for _, t := range a.RankedTeams {
		if !t.Picked {
			out = append(out, t)
		}
	}
	return out
}
