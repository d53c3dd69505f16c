package sequencer

import (
	"time"

	"github.com/okian/fielddisplay/internal/domain/screen"
)

func ms(cue string, d int) Step {
	return Step{Cue: cue, Duration: time.Duration(d) * time.Millisecond}
}

func steps(s ...Step) Spec {
	return Spec{Steps: s}
}

// Base choreographies. Parallel animations collapse into the step whose
// completion continues the sequence.
var (
	allianceOut = steps(ms("alliance.slide_out", 500))
	allianceIn  = steps(ms("alliance.slide_in", 500))

	blankToLogo = steps(ms("blinds.close", 1000), ms("pause", 200), ms("logo.flip_in", 500))
	logoToBlank = steps(ms("logo.flip_out", 500), ms("pause", 200), ms("blinds.open", 1000))
	logoHandoff = steps(ms("pause", 50))

	blankToIntro   = steps(ms("overlay.show", 500), ms("score.expand_mid", 500), ms("match_info.drop", 500))
	blankToMatch   = steps(ms("overlay.show", 500), ms("score.expand_out", 500), ms("match_info.drop", 500))
	blankToTimeout = steps(ms("overlay.show", 500), ms("logo.raise", 500), ms("timeout.fade_in", 750))
	blankToLuma    = steps(ms("logo.luma_in", 1000))
	blankToSponsor = steps(ms("blinds.close", 1000), ms("pause", 200), ms("sponsor.fade_in", 1000))

	bracketToLogo  = steps(ms("logo.center", 625))
	bracketToScore = steps(ms("bracket.fade_out", 1000), ms("score.fade_in", 1000))

	introToBlank   = steps(ms("match_info.raise", 500), ms("score.collapse", 500), ms("overlay.hide", 1000))
	introToMatch   = steps(ms("score.expand_out", 500), ms("score.fade_in", 750))
	introToTimeout = steps(ms("match_info.raise", 500), ms("score.collapse", 500), ms("logo.raise", 500), ms("timeout.fade_in", 750))

	logoToBracket = steps(ms("bracket.fade_in", 1000))
	logoToLuma    = steps(ms("blinds.open", 1000))
	logoToScore   = steps(ms("score.fade_in", 1000))
	logoToSponsor = steps(ms("logo.flip_away", 750), ms("sponsor.fade_in", 1000))

	lumaToBlank = steps(ms("logo.luma_out", 1000))
	lumaToLogo  = steps(ms("blinds.close", 1000))

	matchToBlank = steps(ms("score.fade_out", 300), ms("score.collapse", 500), ms("overlay.hide", 1000))
	matchToIntro = steps(ms("score.fade_out", 300), ms("score.collapse_mid", 500), ms("avatars.fade_in", 500))

	scoreToBracket = steps(ms("score.fade_out", 1000), ms("bracket.fade_in", 1000))
	scoreToLogo    = steps(ms("logo.center", 625))

	sponsorToBlank = steps(ms("sponsor.fade_out", 1000), ms("pause", 200), ms("blinds.open", 1000))
	sponsorToLogo  = steps(ms("sponsor.fade_out", 1000), ms("logo.flip_back", 750))

	timeoutToBlank = steps(ms("timeout.fade_out", 300), ms("logo.lower", 500), ms("overlay.hide", 1000))
	timeoutToIntro = steps(ms("timeout.fade_out", 300), ms("logo.lower", 500), ms("score.expand_mid", 500), ms("match_info.drop", 500))
)

// DefaultEdges returns the audience display transition table.
func DefaultEdges() map[Edge]Spec {
	const (
		blank    = screen.Blank
		alliance = screen.AllianceSelection
		bracket  = screen.Bracket
		intro    = screen.Intro
		logo     = screen.Logo
		luma     = screen.LogoLuma
		match    = screen.Match
		score    = screen.Score
		sponsor  = screen.Sponsor
		timeout  = screen.Timeout
	)

	return map[Edge]Spec{
		{alliance, blank}: allianceOut,

		{blank, alliance}: allianceIn,
		{blank, bracket}:  blankToLogo.Then(logoHandoff, logoToBracket),
		{blank, intro}:    blankToIntro,
		{blank, logo}:     blankToLogo,
		{blank, luma}:     blankToLuma,
		{blank, match}:    blankToMatch,
		{blank, score}:    blankToLogo.Then(logoHandoff, logoToScore),
		{blank, sponsor}:  blankToSponsor,
		{blank, timeout}:  blankToTimeout,

		{bracket, blank}:   bracketToLogo.Then(logoToBlank),
		{bracket, logo}:    bracketToLogo,
		{bracket, luma}:    bracketToLogo.Then(logoToLuma),
		{bracket, score}:   bracketToScore,
		{bracket, sponsor}: bracketToLogo.Then(logoToSponsor),

		{intro, blank}:   introToBlank,
		{intro, match}:   introToMatch,
		{intro, timeout}: introToTimeout,

		{logo, blank}:   logoToBlank,
		{logo, bracket}: logoToBracket,
		{logo, luma}:    logoToLuma,
		{logo, score}:   logoToScore,
		{logo, sponsor}: logoToSponsor,

		{luma, blank}:   lumaToBlank,
		{luma, bracket}: lumaToLogo.Then(logoToBracket),
		{luma, logo}:    lumaToLogo,
		{luma, score}:   lumaToLogo.Then(logoToScore),

		{match, blank}: matchToBlank,
		{match, intro}: matchToIntro,

		{score, blank}:   scoreToLogo.Then(logoToBlank),
		{score, bracket}: scoreToBracket,
		{score, logo}:    scoreToLogo,
		{score, luma}:    scoreToLogo.Then(logoToLuma),
		{score, sponsor}: scoreToLogo.Then(logoToSponsor),

		{sponsor, blank}:   sponsorToBlank,
		{sponsor, bracket}: sponsorToLogo.Then(logoToBracket),
		{sponsor, logo}:    sponsorToLogo,
		{sponsor, score}:   sponsorToLogo.Then(logoToScore),

		{timeout, blank}: timeoutToBlank,
		{timeout, intro}: timeoutToIntro,
	}
}

// DefaultGraph builds the audience display graph. The table is static, so a
// validation failure is a programming error and panics.
func DefaultGraph() *Graph {
	g, err := NewGraph(DefaultEdges())
	if err != nil {
		panic(err)
	}
	return g
}
