package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/artemshundrik/tosho-crm-sub001/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*4)
				convey.So(cfg.Source, convey.ShouldEqual, config.SourceNone)
				convey.So(cfg.SyncSchedule, convey.ShouldEqual, "")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TOSHO_ADDR", ":8080")
			_ = os.Setenv("TOSHO_QUEUE_SIZE", "5000")
			_ = os.Setenv("TOSHO_WORKER_COUNT", "16")
			_ = os.Setenv("TOSHO_LOG_FORMAT", "json")
			_ = os.Setenv("TOSHO_WATCH_ROSTER_FILE", "true")
			_ = os.Setenv("TOSHO_BREAKER_FAILURE_RATIO", "0.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 5000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.WatchRosterFile, convey.ShouldBeTrue)
				convey.So(cfg.BreakerFailureRatio, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
queue_size: 300
source: yaml
roster_file: /srv/rosters.yaml
sync_schedule: "*/5 * * * *"
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("TOSHO_CONFIG", tmpFile)
			_ = os.Setenv("TOSHO_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.Source, convey.ShouldEqual, config.SourceYAML)
				convey.So(cfg.RosterFile, convey.ShouldEqual, "/srv/rosters.yaml")
				convey.So(cfg.SyncSchedule, convey.ShouldEqual, "*/5 * * * *")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("TOSHO_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("TOSHO_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("TOSHO_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("TOSHO_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"TOSHO_CONFIG",
		"TOSHO_ADDR",
		"TOSHO_QUEUE_SIZE",
		"TOSHO_WORKER_COUNT",
		"TOSHO_LOG_FORMAT",
		"TOSHO_WATCH_ROSTER_FILE",
		"TOSHO_BREAKER_FAILURE_RATIO",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "tosho-config-*.yaml")
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
