package fieldsim

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"gopkg.in/yaml.v3"

	"github.com/okian/fielddisplay/pkg/logger"
)

// Step is one scripted message, sent After the previous step.
type Step struct {
	Type  string        `yaml:"type"`
	Data  any           `yaml:"data"`
	After time.Duration `yaml:"after"`
}

// Script is an ordered list of steps, optionally repeated.
type Script struct {
	Name  string `yaml:"name"`
	Loop  bool   `yaml:"loop"`
	Steps []Step `yaml:"steps"`
}

// ParseScript decodes a YAML script.
func ParseScript(raw []byte) (*Script, error) {
	var sc Script
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidScript)
	}
	for i, st := range sc.Steps {
		if st.Type == "" {
			return nil, fmt.Errorf("%w: step %d has no type", ErrInvalidScript, i)
		}
		if st.After < 0 {
			return nil, fmt.Errorf("%w: step %d has a negative delay", ErrInvalidScript, i)
		}
	}
	if sc.Loop && sc.Duration() == 0 {
		return nil, fmt.Errorf("%w: a looping script needs a delay", ErrInvalidScript)
	}
	return &sc, nil
}

// LoadScript reads and parses the script at path.
func LoadScript(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(raw)
}

// Duration is the time one pass of the script takes.
func (sc *Script) Duration() time.Duration {
	var d time.Duration
	for _, st := range sc.Steps {
		d += st.After
	}
	return d
}

// Play broadcasts the script's steps on clock until it ends or ctx is done.
// A looping script only ends with ctx and must take some time per pass.
func (s *Server) Play(ctx context.Context, clock clockwork.Clock, sc *Script) error {
	if sc.Loop && sc.Duration() == 0 {
		return fmt.Errorf("%w: a looping script needs a delay", ErrInvalidScript)
	}
	for {
		for i, st := range sc.Steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			if st.After > 0 {
				select {
				case <-clock.After(st.After):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			n, err := s.Broadcast(st.Type, st.Data)
			if err != nil {
				return fmt.Errorf("step %d (%s): %w", i, st.Type, err)
			}
			s.logger.Debug(ctx, "script step sent",
				logger.String("script", sc.Name),
				logger.String("type", st.Type),
				logger.Int("displays", n),
			)
		}
		if !sc.Loop {
			return nil
		}
	}
}
