// Package screen enumerates the audience display screens.
package screen

import "fmt"

// Screen identifies one audience display screen by its wire name.
type Screen string

// Known screens. Blank is the hub every screen can reach and return from.
const (
	Blank             Screen = "blank"
	Match             Screen = "match"
	Score             Screen = "score"
	Sponsor           Screen = "sponsor"
	Bracket           Screen = "bracket"
	Logo              Screen = "logo"
	LogoLuma          Screen = "logoLuma"
	Intro             Screen = "intro"
	Timeout           Screen = "timeout"
	AllianceSelection Screen = "allianceSelection"
)

// Initial is the screen shown before any transition has run.
const Initial = Blank

var all = []Screen{
	Blank, Match, Score, Sponsor, Bracket, Logo, LogoLuma, Intro, Timeout, AllianceSelection,
}

// All returns every known screen, Blank first.
func All() []Screen {
	out := make([]Screen, len(all))
	copy(out, all)
	return out
}

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	for _, k := range all {
		if s == k {
			return true
		}
	}
	return false
}

func (s Screen) String() string { return string(s) }

// Parse converts a wire name into a Screen. Matching is exact.
func Parse(name string) (Screen, error) {
	s := Screen(name)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownScreen, name)
	}
	return s, nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Screen) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown names.
func (s *Screen) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
