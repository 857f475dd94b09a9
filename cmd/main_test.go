package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/internal/adapters/source/supabase"
	"github.com/artemshundrik/tosho-crm-sub001/internal/adapters/source/yamlfile"
	app "github.com/artemshundrik/tosho-crm-sub001/internal/app"
	"github.com/artemshundrik/tosho-crm-sub001/internal/config"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const rosterFixture = `rosters:
  - id: u17
    players:
      - id: striker
        matches: 5
        goals: 5
        assists: 3
      - id: keeper
        role: goalkeeper
        matches: 3
`

func TestBuildSource(t *testing.T) {
	convey.Convey("Given a configuration", t, func() {
		cfg := config.New()

		convey.Convey("No source yields nil", func() {
			src, err := buildSource(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(src, convey.ShouldBeNil)
		})

		convey.Convey("The yaml source reads the roster file", func() {
			cfg.Source = config.SourceYAML
			cfg.RosterFile = "rosters.yaml"
			src, err := buildSource(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(src, convey.ShouldHaveSameTypeAs, &yamlfile.Source{})
		})

		convey.Convey("The supabase source needs credentials", func() {
			cfg.Source = config.SourceSupabase
			_, err := buildSource(cfg)
			convey.So(err, convey.ShouldNotBeNil)

			cfg.SupabaseURL = "http://localhost:54321"
			cfg.SupabaseKey = "anon"
			src, err := buildSource(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(src, convey.ShouldHaveSameTypeAs, &supabase.Source{})
		})
	})
}

func TestMuxEndToEnd(t *testing.T) {
	convey.Convey("Given a service synced from a roster file", t, func() {
		path := filepath.Join(t.TempDir(), "rosters.yaml")
		convey.So(os.WriteFile(path, []byte(rosterFixture), 0o600), convey.ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := app.New(app.WithWorkerCount(2), app.WithSource(yamlfile.New(path)))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := newMux(ctx, svc, 50)

		convey.Convey("POST /sync loads the rosters", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sync", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			convey.Convey("And standings are served", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rosters/u17/ratings", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"player_id":"striker"`)
			})

			convey.Convey("And the docs are served", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("A posted event is accepted", func() {
			body := `{"event_id":"e1","roster_id":"u17","player_id":"winger","kind":"appearance","ts":"2026-03-01T15:04:05Z"}`
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("System metrics update without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Service metrics update before and after start", func() {
			svc := app.New()
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("The updater loops stop with their context", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, app.New())
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("updaters did not stop")
			}
		})
	})
}
