package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fielddisplay/internal/adapters/http/api"
	"github.com/okian/fielddisplay/internal/adapters/mq/queue"
	"github.com/okian/fielddisplay/internal/audience"
	"github.com/okian/fielddisplay/internal/domain/screen"
	"github.com/okian/fielddisplay/internal/sequencer"
	"github.com/okian/fielddisplay/internal/sponsor"
)

var errNotStarted = errors.New("service not started")

// mockDisplay implements api.Dependencies.
type mockDisplay struct {
	mu        sync.Mutex
	started   bool
	requested []screen.Screen
	requestFn func(screen.Screen) error
	status    sequencer.Status
	board     audience.Snapshot
	slides    []sponsor.Slide
	sent      []string
	connected bool
}

func (m *mockDisplay) RequestScreen(_ context.Context, target screen.Screen) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return errNotStarted
	}
	if m.requestFn != nil {
		if err := m.requestFn(target); err != nil {
			return err
		}
	}
	m.requested = append(m.requested, target)
	return nil
}

func (m *mockDisplay) Screen() (sequencer.Status, error) {
	if !m.started {
		return sequencer.Status{}, errNotStarted
	}
	return m.status, nil
}

func (m *mockDisplay) Board() (audience.Snapshot, error) {
	if !m.started {
		return audience.Snapshot{}, errNotStarted
	}
	return m.board, nil
}

func (m *mockDisplay) Slides() ([]sponsor.Slide, error) {
	if !m.started {
		return nil, errNotStarted
	}
	return m.slides, nil
}

func (m *mockDisplay) Send(_ context.Context, msgType string, data any) error {
	if !m.started {
		return errNotStarted
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, fmt.Sprintf("%s %s", msgType, data))
	return nil
}

func (m *mockDisplay) Connected() bool {
	return m.connected
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(display *mockDisplay) *http.ServeMux {
	server := api.NewServer(display, &mockStatsProvider{stats: map[string]interface{}{"started": display.started}})
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a running display behind the API", t, func() {
		display := &mockDisplay{
			started: true,
			status:  sequencer.Status{Current: screen.Match, Busy: true, Pending: 2},
			board:   audience.Snapshot{LastSound: "match_end"},
			slides:  []sponsor.Slide{{ID: 1, Line1: "Acme", First: true}},
		}
		mux := newMux(display)

		Convey("Then /healthz serves Prometheus metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "fielddisplay_audience")
		})

		Convey("And /stats serves the service stats", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("And GET /screen reports the current screen", func() {
			w := do(mux, http.MethodGet, "/screen", "")
			So(w.Code, ShouldEqual, http.StatusOK)

			var st sequencer.Status
			So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
			So(st, ShouldResemble, display.status)
		})

		Convey("And POST /screen queues a known screen", func() {
			w := do(mux, http.MethodPost, "/screen", `{"screen":"allianceSelection"}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(display.requested, ShouldResemble, []screen.Screen{screen.AllianceSelection})
			So(w.Body.String(), ShouldContainSubstring, `"status":"queued"`)
		})

		Convey("And POST /screen rejects unknown screens", func() {
			w := do(mux, http.MethodPost, "/screen", `{"screen":"fireworks"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "unknown_screen")
			So(display.requested, ShouldBeEmpty)
		})

		Convey("And POST /screen rejects bad bodies", func() {
			So(do(mux, http.MethodPost, "/screen", `{`).Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodPost, "/screen", `{"screen":"  "}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("And a full queue is reported as backpressure", func() {
			display.requestFn = func(screen.Screen) error { return queue.ErrQueueFull }
			w := do(mux, http.MethodPost, "/screen", `{"screen":"logo"}`)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeError(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("And /board and /slides serve the view-model", func() {
			w := do(mux, http.MethodGet, "/board", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"last_sound":"match_end"`)

			w = do(mux, http.MethodGet, "/slides", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"line1":"Acme"`)
		})

		Convey("And POST /send passes the message through", func() {
			display.connected = true
			w := do(mux, http.MethodPost, "/send", `{"type":"start_timeout","data":{"duration_sec":90}}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(display.sent, ShouldResemble, []string{`start_timeout {"duration_sec":90}`})
			So(w.Body.String(), ShouldContainSubstring, `"status":"accepted"`)
			So(w.Body.String(), ShouldContainSubstring, `"connected":true`)

			So(do(mux, http.MethodPost, "/send", `{"data":1}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("And a send while the channel is down is not reported as delivered", func() {
			w := do(mux, http.MethodPost, "/send", `{"type":"start_timeout"}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)

			var ack map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
			So(ack["status"], ShouldEqual, "accepted")
			So(ack["connected"], ShouldEqual, false)
			So(w.Body.String(), ShouldNotContainSubstring, `"sent"`)
		})

		Convey("And wrong methods are not found", func() {
			So(do(mux, http.MethodDelete, "/screen", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/board", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/send", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a display that has not started", t, func() {
		mux := newMux(&mockDisplay{})

		Convey("Then display endpoints answer 503", func() {
			for _, tc := range []struct{ method, path, body string }{
				{http.MethodGet, "/screen", ""},
				{http.MethodPost, "/screen", `{"screen":"logo"}`},
				{http.MethodGet, "/board", ""},
				{http.MethodGet, "/slides", ""},
				{http.MethodPost, "/send", `{"type":"ping"}`},
			} {
				w := do(mux, tc.method, tc.path, tc.body)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decodeError(w)["code"], ShouldEqual, "unavailable")
			}
		})

		Convey("And unknown screens are still a client error", func() {
			So(do(mux, http.MethodPost, "/screen", `{"screen":"nope"}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestHandlerCORS(t *testing.T) {
	Convey("Given the CORS-wrapped API", t, func() {
		mux := newMux(&mockDisplay{started: true})
		h := api.Handler(mux)

		Convey("When an operator console preflights a screen request", func() {
			req := httptest.NewRequest(http.MethodOptions, "/screen", http.NoBody)
			req.Header.Set("Origin", "http://console.local")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is allowed", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			})
		})

		Convey("When a console reads the screen", func() {
			req := httptest.NewRequest(http.MethodGet, "/screen", http.NoBody)
			req.Header.Set("Origin", "http://console.local")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("boom")
		err := api.WrapKind("api.post_screen", api.ErrBackpressure, cause)

		Convey("Then both the kind and the cause match", func() {
			So(errors.Is(err, api.ErrBackpressure), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.post_screen: backpressure: boom")
		})

		Convey("And a nil cause yields the bare kind", func() {
			err := api.WrapKind("op", api.ErrUnavailable, nil)
			So(errors.Is(err, api.ErrUnavailable), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "op: display unavailable")
		})
	})
}
