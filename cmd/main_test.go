package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/fielddisplay/internal/config"
	"github.com/okian/fielddisplay/pkg/logger"
)

func TestMainWiring(t *testing.T) {
	t.Setenv("DISPLAY_ADDR", ":9191")
	t.Setenv("DISPLAY_QUEUE_SIZE", "16")
	t.Setenv("DISPLAY_PAGE_URL", "http://field.local:8080/displays/audience?display_id=3")

	convey.Convey("Given configuration from the environment", t, func() {
		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":9191")

		convey.Convey("When the service is built from it", func() {
			svc := newService(cfg, logger.Nop())

			convey.Convey("Then options are applied", func() {
				stats := svc.GetStats()
				convey.So(stats["queueSize"], convey.ShouldEqual, 16)
				convey.So(stats["started"], convey.ShouldBeFalse)
			})

			convey.Convey("And the handler serves the status API and its docs", func() {
				h := newHandler(context.Background(), svc)

				for path, want := range map[string]int{
					"/healthz":      http.StatusOK,
					"/stats":        http.StatusOK,
					"/openapi.yaml": http.StatusOK,
					"/api-docs":     http.StatusOK,
					"/screen":       http.StatusServiceUnavailable,
					"/board":        http.StatusServiceUnavailable,
				} {
					w := httptest.NewRecorder()
					h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, want)
				}
			})
		})
	})

	convey.Convey("Given an invalid address", t, func() {
		t.Setenv("DISPLAY_ADDR", "")

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service that is not running", t, func() {
		svc := newService(config.New(context.Background()), logger.Nop())

		convey.Convey("Then the updater returns when its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("And system metrics update without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
