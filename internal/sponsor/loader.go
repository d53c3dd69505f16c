// Package sponsor fetches the slideshow shown on the sponsor screen.
package sponsor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/okian/fielddisplay/pkg/logger"
)

const (
	slidesPath     = "/api/sponsor_slides"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Slide is one sponsor slide as served by the field server.
type Slide struct {
	ID             int    `json:"id"`
	Subtitle       string `json:"subtitle"`
	Line1          string `json:"line1"`
	Line2          string `json:"line2"`
	Image          string `json:"image"`
	DisplayTimeSec int    `json:"display_time_sec"`
	DisplayOrder   int    `json:"display_order"`

	// Derived on load.
	DisplayTimeMs int  `json:"display_time_ms"`
	First         bool `json:"first"`
}

// IsImage reports whether the slide renders as an image rather than text.
func (s Slide) IsImage() bool { return s.Image != "" }

// Loader keeps the most recently fetched slideshow.
type Loader struct {
	origin string
	client *http.Client
	logger logger.Logger

	mu       sync.RWMutex
	slides   []Slide
	loadedAt time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the client used to fetch slides.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithLogger sets the loader's logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader creates a loader for the field server at origin (scheme://host).
func NewLoader(origin string, opts ...Option) *Loader {
	l := &Loader{
		origin: origin,
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the slideshow with a fresh copy from the server. On any
// failure the slideshow is emptied and the error returned.
func (l *Loader) Load(ctx context.Context) error {
	slides, err := l.fetch(ctx)
	if err != nil {
		l.store(nil)
		return err
	}
	for i := range slides {
		slides[i].DisplayTimeMs = slides[i].DisplayTimeSec * 1000
		slides[i].First = i == 0
	}
	l.store(slides)
	l.logger.Debug(ctx, "sponsor slides loaded", logger.Int("count", len(slides)))
	return nil
}

func (l *Loader) fetch(ctx context.Context) ([]Slide, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.origin+slidesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d, response: %s", ErrStatus, resp.StatusCode, string(body))
	}

	var slides []Slide
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&slides); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return slides, nil
}

func (l *Loader) store(slides []Slide) {
	if slides == nil {
		slides = []Slide{}
	}
	l.mu.Lock()
	l.slides = slides
	l.loadedAt = time.Now()
	l.mu.Unlock()
}

// Slides returns a copy of the current slideshow.
func (l *Loader) Slides() []Slide {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Slide, len(l.slides))
	copy(out, l.slides)
	return out
}

// LoadedAt returns when the slideshow was last replaced.
func (l *Loader) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}
