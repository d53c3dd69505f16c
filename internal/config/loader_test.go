package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/fielddisplay/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.PageURL, convey.ShouldEqual, "http://localhost:8080/displays/audience?display_id=100")
				convey.So(cfg.ReconnectDelayMS, convey.ShouldEqual, 3000)
				convey.So(cfg.SettleDelayMS, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("DISPLAY_ADDR", ":8181")
			_ = os.Setenv("DISPLAY_PAGE_URL", "https://field.local/displays/audience?display_id=7")
			_ = os.Setenv("DISPLAY_RECONNECT_DELAY_MS", "1500")
			_ = os.Setenv("DISPLAY_QUEUE_SIZE", "64")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8181")
				convey.So(cfg.PageURL, convey.ShouldEqual, "https://field.local/displays/audience?display_id=7")
				convey.So(cfg.ReconnectDelayMS, convey.ShouldEqual, 1500)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.SettleDelayMS, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
# field B
addr: ":9191"
channel_path: /api/displays/audience/websocket
settle_delay_ms: 250
transition_timeout_ms: 10000
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("DISPLAY_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9191")
				convey.So(cfg.SettleDelayMS, convey.ShouldEqual, 250)
				convey.So(cfg.TransitionTimeoutMS, convey.ShouldEqual, 10000)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			})

			convey.Convey("And env vars override file values", func() {
				_ = os.Setenv("DISPLAY_SETTLE_DELAY_MS", "50")

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SettleDelayMS, convey.ShouldEqual, 50)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9191")
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("DISPLAY_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("DISPLAY_CONFIG", "/nonexistent/display.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a numeric env var is not a number", func() {
			_ = os.Setenv("DISPLAY_QUEUE_SIZE", "lots")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the addr is emptied by env", func() {
			_ = os.Setenv("DISPLAY_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"DISPLAY_CONFIG",
		"DISPLAY_ADDR",
		"DISPLAY_PAGE_URL",
		"DISPLAY_RECONNECT_DELAY_MS",
		"DISPLAY_SETTLE_DELAY_MS",
		"DISPLAY_QUEUE_SIZE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "display-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
