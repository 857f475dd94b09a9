package yamlfile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/internal/adapters/source"
	"github.com/artemshundrik/tosho-crm-sub001/internal/adapters/source/yamlfile"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const fixture = `
rosters:
  - id: u17
    players:
      - id: keeper
        role: goalkeeper
        matches: 3
      - id: striker
        matches: 10
        goals: 5
        assists: 3
        yellow_cards: 1
  - id: seniors
    players:
      - id: veteran
        matches: 20
        raw_points: 0
`

func writeFixture(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "rosters.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecode(t *testing.T) {
	Convey("Given a roster fixture", t, func() {
		tallies, err := yamlfile.Decode([]byte(fixture))

		Convey("Then every player is read with its roster", func() {
			So(err, ShouldBeNil)
			So(tallies, ShouldHaveLength, 3)

			So(tallies[0].RosterID, ShouldEqual, "u17")
			So(tallies[0].PlayerID, ShouldEqual, "keeper")
			So(tallies[0].Stats.Role, ShouldEqual, rating.RoleGoalkeeper)
			So(tallies[0].Stats.Matches, ShouldEqual, 3)

			So(tallies[1].Stats, ShouldResemble, rating.PlayerStats{Matches: 10, Goals: 5, Assists: 3, YellowCards: 1})
		})

		Convey("Then an explicit zero raw points value is kept", func() {
			So(tallies[2].Stats.RawPoints, ShouldNotBeNil)
			So(*tallies[2].Stats.RawPoints, ShouldEqual, 0)
			So(tallies[1].Stats.RawPoints, ShouldBeNil)
		})
	})

	Convey("Given malformed documents", t, func() {
		for name, doc := range map[string]string{
			"syntax":       "rosters: [",
			"no roster id": "rosters:\n  - players: []\n",
			"no player id": "rosters:\n  - id: a\n    players:\n      - matches: 1\n",
		} {
			_, err := yamlfile.Decode([]byte(doc))

			Convey("Then "+name+" is rejected as malformed", func() {
				So(errors.Is(err, source.ErrMalformed), ShouldBeTrue)
			})
		}
	})
}

func TestSourceFetch(t *testing.T) {
	_ = logger.Init()

	Convey("Given a source over a file", t, func() {
		path := writeFixture(t, fixture)
		src := yamlfile.New(path)

		Convey("When fetching", func() {
			tallies, err := src.Fetch(context.Background())

			Convey("Then the tallies are returned", func() {
				So(err, ShouldBeNil)
				So(tallies, ShouldHaveLength, 3)
				So(src.Name(), ShouldEqual, "yaml")
				So(src.Path(), ShouldEqual, path)
			})
		})

		Convey("When the file is missing", func() {
			_, err := yamlfile.New(filepath.Join(t.TempDir(), "gone.yaml")).Fetch(context.Background())

			Convey("Then the source is unavailable", func() {
				So(errors.Is(err, source.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestSourceWatch(t *testing.T) {
	_ = logger.Init()

	Convey("Given a watched file", t, func() {
		path := writeFixture(t, fixture)
		src := yamlfile.New(path, yamlfile.WithDebounce(20*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var calls atomic.Int32
		done := make(chan error, 1)
		go func() { done <- src.Watch(ctx, func() { calls.Add(1) }) }()
		time.Sleep(100 * time.Millisecond)

		Convey("When the file is written several times in a burst", func() {
			for i := 0; i < 3; i++ {
				So(os.WriteFile(path, []byte(fixture), 0o600), ShouldBeNil)
			}

			Convey("Then onChange fires once the writes settle", func() {
				deadline := time.Now().Add(2 * time.Second)
				for calls.Load() == 0 && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				So(calls.Load(), ShouldBeGreaterThanOrEqualTo, 1)

				cancel()
				So(<-done, ShouldBeNil)
			})
		})

		Convey("When the file is saved by renaming a temp file over it", func() {
			waitFor := func(n int32) int32 {
				deadline := time.Now().Add(2 * time.Second)
				for calls.Load() < n && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				time.Sleep(50 * time.Millisecond)
				return calls.Load()
			}
			atomicSave := func() {
				tmp := path + ".tmp"
				So(os.WriteFile(tmp, []byte(fixture), 0o600), ShouldBeNil)
				So(os.Rename(tmp, path), ShouldBeNil)
			}

			atomicSave()
			first := waitFor(1)

			Convey("Then onChange fires and the watch survives later saves", func() {
				So(first, ShouldBeGreaterThanOrEqualTo, 1)

				atomicSave()
				second := waitFor(first + 1)
				So(second, ShouldBeGreaterThan, first)

				So(os.WriteFile(path, []byte(fixture), 0o600), ShouldBeNil)
				So(waitFor(second+1), ShouldBeGreaterThan, second)

				cancel()
				So(<-done, ShouldBeNil)
			})
		})

		Convey("When a sibling file changes", func() {
			So(os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x: 1"), 0o600), ShouldBeNil)

			Convey("Then onChange does not fire", func() {
				time.Sleep(150 * time.Millisecond)
				So(calls.Load(), ShouldEqual, 0)

				cancel()
				So(<-done, ShouldBeNil)
			})
		})
	})
}
