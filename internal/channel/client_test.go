package channel_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/okian/fielddisplay/internal/channel"
	"github.com/okian/fielddisplay/internal/domain/model"
)

const (
	wsPath = "/api/displays/audience/websocket"
	within = 2 * time.Second
)

// fieldServer accepts display sockets and hands them to the test.
type fieldServer struct {
	srv     *httptest.Server
	conns   chan *websocket.Conn
	queries chan string
	hits    atomic.Int32
}

func newFieldServer(t *testing.T) *fieldServer {
	t.Helper()
	fs := &fieldServer{
		conns:   make(chan *websocket.Conn, 8),
		queries: make(chan string, 8),
	}
	upgrader := websocket.Upgrader{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		if r.URL.Path != wsPath {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.queries <- r.URL.RawQuery
		fs.conns <- conn
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fieldServer) pageURL(query string) string {
	return fs.srv.URL + "/displays/audience?" + query
}

func (fs *fieldServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-fs.conns:
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(within):
		t.Fatal("display never connected")
		return nil
	}
}

// fakePage records reloads and navigations.
type fakePage struct {
	mu        sync.Mutex
	loc       channel.Location
	reloads   chan struct{}
	navigated chan string
}

func newFakePage(t *testing.T, raw string) *fakePage {
	t.Helper()
	loc, err := channel.ParseLocation(raw)
	if err != nil {
		t.Fatalf("parse page url: %v", err)
	}
	return &fakePage{loc: loc, reloads: make(chan struct{}, 8), navigated: make(chan string, 8)}
}

func (p *fakePage) Location() channel.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loc
}

func (p *fakePage) Reload(context.Context) { p.reloads <- struct{}{} }

func (p *fakePage) Navigate(_ context.Context, target string) { p.navigated <- target }

func (p *fakePage) setQuery(q string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loc.RawQuery = q
}

type runningClient struct {
	*channel.Client
	cancel context.CancelFunc
}

func startClient(t *testing.T, page channel.Page, handlers channel.Handlers, opts ...channel.Option) *runningClient {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	c := channel.New(page, wsPath, handlers, opts...)
	go c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		_ = c.Close()
		select {
		case <-c.Done():
		case <-time.After(within):
			t.Error("client did not stop")
		}
	})
	return &runningClient{Client: c, cancel: cancel}
}

func waitConnected(t *testing.T, c *channel.Client) {
	t.Helper()
	deadline := time.Now().Add(within)
	for !c.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("client never reported connected")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func writeText(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func TestChannelURLCarriesPageQuery(t *testing.T) {
	fs := newFieldServer(t)
	page := newFakePage(t, fs.pageURL("display_id=100"))
	startClient(t, page, nil)

	fs.accept(t)
	if q := <-fs.queries; q != "display_id=100" {
		t.Errorf("expected page query on channel URL, got %q", q)
	}
}

func TestDispatchInReceiptOrder(t *testing.T) {
	fs := newFieldServer(t)
	page := newFakePage(t, fs.pageURL("display_id=100"))

	got := make(chan string, 8)
	handlers := channel.Handlers{
		"match_time": func(_ context.Context, env model.Envelope) {
			var p struct {
				MatchTimeSec int `json:"match_time_sec"`
			}
			if err := env.Unmarshal(&p); err != nil {
				t.Errorf("decode: %v", err)
			}
			got <- env.Type
		},
		"score_posted": func(_ context.Context, env model.Envelope) { got <- env.Type },
		"boom":         func(context.Context, model.Envelope) { panic("handler bug") },
	}
	c := startClient(t, page, handlers)
	conn := fs.accept(t)

	writeText(t, conn, `{"type":"match_time","data":{"match_state":3,"match_time_sec":12}}`)
	writeText(t, conn, `{"type":"no_such_type","data":1}`)
	writeText(t, conn, `this is not json`)
	writeText(t, conn, `{"type":"boom","data":null}`)
	writeText(t, conn, `{"type":"score_posted","data":{}}`)

	for _, want := range []string{"match_time", "score_posted"} {
		select {
		case typ := <-got:
			if typ != want {
				t.Errorf("expected %s, got %s", want, typ)
			}
		case <-time.After(within):
			t.Fatalf("handler for %s never ran", want)
		}
	}

	stats := c.Stats()
	if stats.Unhandled != 1 || stats.Malformed != 1 {
		t.Errorf("expected one unhandled and one malformed, got %+v", stats)
	}
	if !c.Connected() {
		t.Error("bad frames and handler panics must not drop the channel")
	}
}

func TestReloadHandler(t *testing.T) {
	cases := []struct {
		name   string
		frame  string
		reload bool
	}{
		{"null payload reloads every display", `{"type":"reload","data":null}`, true},
		{"own display id reloads", `{"type":"reload","data":"100"}`, true},
		{"numeric display id reloads", `{"type":"reload","data":100}`, true},
		{"other display id is ignored", `{"type":"reload","data":"7"}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := newFieldServer(t)
			page := newFakePage(t, fs.pageURL("display_id=100"))
			startClient(t, page, nil)
			conn := fs.accept(t)

			writeText(t, conn, tc.frame)

			select {
			case <-page.reloads:
				if !tc.reload {
					t.Error("unexpected reload")
				}
			case <-time.After(200 * time.Millisecond):
				if tc.reload {
					t.Error("expected a reload")
				}
			}
		})
	}
}

func TestDisplayConfigurationHandler(t *testing.T) {
	fs := newFieldServer(t)
	page := newFakePage(t, fs.pageURL("display_id=100"))
	startClient(t, page, nil)
	conn := fs.accept(t)

	// Same path+query: nothing to do.
	writeText(t, conn, `{"type":"displayConfiguration","data":"/displays/audience?display_id=100"}`)
	// New configuration: navigate.
	writeText(t, conn, `{"type":"displayConfiguration","data":"/displays/audience?display_id=100&background=%23000"}`)

	select {
	case target := <-page.navigated:
		if target != "/displays/audience?display_id=100&background=%23000" {
			t.Errorf("navigated to %q", target)
		}
	case <-time.After(within):
		t.Fatal("expected navigation")
	}
	select {
	case target := <-page.navigated:
		t.Errorf("unexpected second navigation to %q", target)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCallerOverridesDefaultHandler(t *testing.T) {
	fs := newFieldServer(t)
	page := newFakePage(t, fs.pageURL("display_id=100"))

	overridden := make(chan struct{}, 1)
	startClient(t, page, channel.Handlers{
		"reload": func(context.Context, model.Envelope) { overridden <- struct{}{} },
	})
	conn := fs.accept(t)
	writeText(t, conn, `{"type":"reload","data":null}`)

	select {
	case <-overridden:
	case <-time.After(within):
		t.Fatal("custom reload handler never ran")
	}
	select {
	case <-page.reloads:
		t.Error("default reload handler should have been replaced")
	default:
	}
}

func TestSendWritesOneFrame(t *testing.T) {
	fs := newFieldServer(t)
	page := newFakePage(t, fs.pageURL("display_id=100"))
	c := startClient(t, page, nil)
	conn := fs.accept(t)
	waitConnected(t, c.Client)

	c.Send(context.Background(), "start_timeout", map[string]int{"duration_sec": 90})

	_ = conn.SetReadDeadline(time.Now().Add(within))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if string(frame) != `{"type":"start_timeout","data":{"duration_sec":90}}` {
		t.Errorf("unexpected frame %s", frame)
	}

	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, extra, err := conn.ReadMessage(); err == nil {
		t.Errorf("expected exactly one frame, also got %s", extra)
	}
	if s := c.Stats(); s.Sent != 1 || s.Dropped != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestSendWhileDisconnectedIsDropped(t *testing.T) {
	page := newFakePage(t, "http://127.0.0.1:1/displays/audience?display_id=100")
	c := channel.New(page, wsPath, nil)

	c.Send(context.Background(), "start_timeout", map[string]int{"duration_sec": 90})

	if s := c.Stats(); s.Dropped != 1 || s.Sent != 0 || s.Connected {
		t.Errorf("expected a silent drop, got %+v", s)
	}
}

func TestReconnectAfterFixedDelay(t *testing.T) {
	fs := newFieldServer(t)
	page := newFakePage(t, fs.pageURL("display_id=100"))
	clock := clockwork.NewFakeClock()
	c := startClient(t, page, nil, channel.WithClock(clock))

	first := fs.accept(t)
	<-fs.queries
	waitConnected(t, c.Client)

	// The page moves before the drop; the redial must use the new query.
	page.setQuery("display_id=200")
	_ = first.Close()

	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("no reconnect was scheduled: %v", err)
	}
	if c.Connected() {
		t.Error("client still reports connected after the drop")
	}

	clock.Advance(2999 * time.Millisecond)
	select {
	case <-fs.conns:
		t.Fatal("redialed before the 3000ms delay")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Millisecond)
	fs.accept(t)
	waitConnected(t, c.Client)
	if q := <-fs.queries; q != "display_id=200" {
		t.Errorf("expected redial with new query, got %q", q)
	}
	if s := c.Stats(); s.Connects != 2 || s.Dials != 2 {
		t.Errorf("expected exactly one reconnect, got %+v", s)
	}
}

func TestReconnectAfterFailedDial(t *testing.T) {
	fs := newFieldServer(t)
	page := newFakePage(t, fs.pageURL("display_id=100"))
	fs.srv.Close()

	clock := clockwork.NewFakeClock()
	c := startClient(t, page, nil, channel.WithClock(clock))

	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	for i := 1; i <= 3; i++ {
		if err := clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("attempt %d: no reconnect scheduled: %v", i, err)
		}
		if got := c.Stats().Dials; got != uint64(i) {
			t.Fatalf("expected %d dials, got %d", i, got)
		}
		clock.Advance(3 * time.Second)
	}
}

func TestCloseStopsReconnecting(t *testing.T) {
	fs := newFieldServer(t)
	page := newFakePage(t, fs.pageURL("display_id=100"))
	clock := clockwork.NewFakeClock()
	c := startClient(t, page, nil, channel.WithClock(clock))
	conn := fs.accept(t)
	waitConnected(t, c.Client)

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(within))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("expected a going-away close frame, got %v", err)
	}

	select {
	case <-c.Done():
	case <-time.After(within):
		t.Fatal("Run did not return after Close")
	}
	if s := c.Stats(); s.Dials != 1 {
		t.Errorf("expected no redial after close, got %d dials", s.Dials)
	}

	c.Send(context.Background(), "ping", nil)
	if s := c.Stats(); s.Dropped != 1 {
		t.Errorf("send after close should drop, got %+v", s)
	}
}

func TestStatsJSON(t *testing.T) {
	page := newFakePage(t, "https://field.local/displays/audience?display_id=3")
	c := channel.New(page, wsPath, nil)

	out, err := json.Marshal(c.Stats())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"url":"wss://field.local/api/displays/audience/websocket?display_id=3"`) {
		t.Errorf("unexpected stats json %s", out)
	}
}
