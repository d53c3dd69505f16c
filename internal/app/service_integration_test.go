package service_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/fielddisplay/internal/app"
	"github.com/okian/fielddisplay/internal/channel"
	"github.com/okian/fielddisplay/internal/domain/screen"
	"github.com/okian/fielddisplay/internal/fieldsim"
	"github.com/okian/fielddisplay/internal/sponsor"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a display service connected to a field server", t, func() {
		fs := fieldsim.New(fieldsim.WithSlides([]sponsor.Slide{
			{ID: 1, Line1: "Acme", DisplayTimeSec: 10},
			{ID: 2, Image: "acme.png", DisplayTimeSec: 5},
		}))
		srv := httptest.NewServer(fs.Handler())
		defer srv.Close()
		defer fs.Close()

		clock := clockwork.NewFakeClock()
		defer fastForward(clock)()

		svc := service.New(
			service.WithPageURL(srv.URL+"/displays/audience?display_id=100"),
			service.WithClock(clock),
			service.WithSettleDelay(0),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		defer svc.Stop()

		So(svc.Start(ctx), ShouldBeNil)
		So(fs.WaitForDisplays(ctx, 1), ShouldBeNil)
		So(fs.Queries(), ShouldResemble, []string{"display_id=100"})

		channelStats := func() channel.Stats {
			st, _ := svc.GetStats()["channel"].(channel.Stats)
			return st
		}
		currentIs := func(want screen.Screen) func() bool {
			return func() bool {
				st, err := svc.Screen()
				return err == nil && st.Current == want && !st.Busy && st.Pending == 0
			}
		}

		Convey("When the server switches the audience display", func() {
			_, err := fs.Broadcast("audience_display_mode", "match")
			So(err, ShouldBeNil)
			So(eventually(currentIs(screen.Match)), ShouldBeTrue)

			_, err = fs.Broadcast("audience_display_mode", "score")
			So(err, ShouldBeNil)

			Convey("Then an indirect switch goes through blank and lands", func() {
				So(eventually(currentIs(screen.Score)), ShouldBeTrue)
			})
		})

		Convey("When match data is pushed", func() {
			_, _ = fs.Broadcast("match_load", map[string]any{
				"match": map[string]any{"id": 12, "long_name": "Qualification 12", "red1": 254},
			})
			_, _ = fs.Broadcast("match_time", map[string]int{"match_state": 3, "match_time_sec": 5})

			Convey("Then the board reflects it", func() {
				So(eventually(func() bool {
					b, err := svc.Board()
					return err == nil && b.MatchLoad != nil && b.Clock != nil
				}), ShouldBeTrue)

				b, _ := svc.Board()
				So(b.MatchLoad.Match.Title(), ShouldEqual, "Qualification 12")
				So(b.Clock.CountdownSec, ShouldEqual, 10)
			})
		})

		Convey("When the sponsor screen is requested", func() {
			_, _ = fs.Broadcast("audience_display_mode", "sponsor")

			Convey("Then the slideshow is fetched from the field server", func() {
				So(eventually(func() bool {
					slides, err := svc.Slides()
					return err == nil && len(slides) == 2
				}), ShouldBeTrue)

				slides, _ := svc.Slides()
				So(slides[0].First, ShouldBeTrue)
				So(slides[1].DisplayTimeMs, ShouldEqual, 5000)
				So(eventually(currentIs(screen.Sponsor)), ShouldBeTrue)
			})
		})

		Convey("When the display sends a message", func() {
			So(eventually(func() bool { return channelStats().Connected }), ShouldBeTrue)
			So(svc.Connected(), ShouldBeTrue)
			So(svc.Send(ctx, "start_timeout", map[string]int{"duration_sec": 90}), ShouldBeNil)

			Convey("Then the field server receives exactly that frame", func() {
				So(eventually(func() bool { return len(fs.Received()) == 1 }), ShouldBeTrue)
				got := fs.Received()[0]
				So(got.Type, ShouldEqual, "start_timeout")
				So(string(got.Data), ShouldEqual, `{"duration_sec":90}`)
			})
		})

		Convey("When the server reloads this display", func() {
			So(svc.RequestScreen(ctx, screen.Logo), ShouldBeNil)
			So(eventually(currentIs(screen.Logo)), ShouldBeTrue)

			_, _ = fs.Broadcast("reload", "100")

			Convey("Then a fresh session starts on blank and reconnects", func() {
				So(eventually(func() bool { return svc.GetStats()["sessions"] == 2 }), ShouldBeTrue)
				So(eventually(currentIs(screen.Blank)), ShouldBeTrue)
				So(eventually(func() bool { return fs.Displays() == 1 && channelStats().Connected }), ShouldBeTrue)
			})
		})

		Convey("When the server reloads another display", func() {
			_, _ = fs.Broadcast("reload", "7")
			_, _ = fs.Broadcast("audience_display_mode", "logo")

			Convey("Then this display keeps its session", func() {
				So(eventually(currentIs(screen.Logo)), ShouldBeTrue)
				So(svc.GetStats()["sessions"], ShouldEqual, 1)
			})
		})

		Convey("When the display configuration changes", func() {
			_, _ = fs.Broadcast("displayConfiguration", "/displays/audience?display_id=100&background=%23000")

			Convey("Then the page moves and the channel redials with the new query", func() {
				So(eventually(func() bool {
					q := fs.Queries()
					return len(q) == 1 && q[0] == "display_id=100&background=%23000"
				}), ShouldBeTrue)
				So(svc.Location(), ShouldEqual, srv.URL+"/displays/audience?display_id=100&background=%23000")
			})
		})

		Convey("When the field server drops the connection", func() {
			So(eventually(func() bool { return channelStats().Connected }), ShouldBeTrue)
			fs.Drop()

			Convey("Then the display reconnects on its own", func() {
				So(eventually(func() bool {
					st := channelStats()
					return st.Connects == 2 && st.Connected
				}), ShouldBeTrue)
				So(svc.GetStats()["sessions"], ShouldEqual, 1)
			})
		})
	})
}
