package channel

import (
	"fmt"
	"net/url"
)

// Query parameters that carry the display identity. The field server writes
// display_id; older pages used displayId.
const (
	displayIDParam       = "display_id"
	legacyDisplayIDParam = "displayId"
)

// Location is the address of the page that owns the channel.
type Location struct {
	Scheme   string
	Host     string
	Path     string
	RawQuery string
}

// ParseLocation parses an absolute http(s) page URL.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Location{}, fmt.Errorf("%w: scheme %q", ErrInvalidLocation, u.Scheme)
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("%w: missing host", ErrInvalidLocation)
	}
	return Location{Scheme: u.Scheme, Host: u.Host, Path: u.Path, RawQuery: u.RawQuery}, nil
}

// String renders the full page URL.
func (l Location) String() string {
	return l.Scheme + "://" + l.Host + l.PathQuery()
}

// Origin returns scheme://host.
func (l Location) Origin() string {
	return l.Scheme + "://" + l.Host
}

// PathQuery returns the path followed by ?query when a query is present.
func (l Location) PathQuery() string {
	if l.RawQuery == "" {
		return l.Path
	}
	return l.Path + "?" + l.RawQuery
}

// DisplayID returns this page's display identity, or "" if it has none.
func (l Location) DisplayID() string {
	q, err := url.ParseQuery(l.RawQuery)
	if err != nil {
		return ""
	}
	if id := q.Get(displayIDParam); id != "" {
		return id
	}
	return q.Get(legacyDisplayIDParam)
}

// ChannelURL builds the websocket URL for path on this page's host. A
// secure page gets a secure channel. The page query is forwarded verbatim.
func (l Location) ChannelURL(path string) string {
	scheme := "ws"
	if l.Scheme == "https" {
		scheme = "wss"
	}
	u := scheme + "://" + l.Host + path
	if l.RawQuery != "" {
		u += "?" + l.RawQuery
	}
	return u
}

// Resolve applies a same-origin path+query target to the location.
func (l Location) Resolve(target string) (Location, error) {
	u, err := url.Parse(target)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}
	next := l
	if u.Scheme != "" || u.Host != "" {
		if u.Scheme != "http" && u.Scheme != "https" {
			return Location{}, fmt.Errorf("%w: scheme %q", ErrInvalidLocation, u.Scheme)
		}
		next.Scheme, next.Host = u.Scheme, u.Host
	}
	next.Path = u.Path
	next.RawQuery = u.RawQuery
	return next, nil
}
