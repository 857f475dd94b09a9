package supabase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/artemshundrik/tosho-crm-sub001/internal/adapters/source"
	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/rating"
	"github.com/artemshundrik/tosho-crm-sub001/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeSelector struct {
	mu    sync.Mutex
	body  []byte
	err   error
	calls int
	table string
}

func (f *fakeSelector) SelectAll(_ context.Context, table, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.table = table
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func (f *fakeSelector) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const rows = `[
  {"roster_id":"u17","player_id":"keeper","role":"goalkeeper","matches":3,"goals":0,"assists":1,"yellow_cards":0,"red_cards":0,"raw_points":null},
  {"roster_id":"u17","player_id":"striker","role":"outfield","matches":10,"goals":5,"assists":3,"yellow_cards":1,"red_cards":0},
  {"roster_id":"seniors","player_id":"veteran","role":"outfield","matches":20,"goals":2,"assists":0,"yellow_cards":0,"red_cards":0,"raw_points":0}
]`

func TestSourceFetch(t *testing.T) {
	Convey("Given a selector returning stat rows", t, func() {
		sel := &fakeSelector{body: []byte(rows)}
		src := New(sel, WithTable("season_stats"))

		Convey("Fetch decodes every row into a tally", func() {
			tallies, err := src.Fetch(context.Background())
			So(err, ShouldBeNil)
			So(tallies, ShouldHaveLength, 3)
			So(sel.table, ShouldEqual, "season_stats")
			So(src.Name(), ShouldEqual, "supabase")

			So(tallies[0].RosterID, ShouldEqual, "u17")
			So(tallies[0].Stats.Role, ShouldEqual, rating.RoleGoalkeeper)
			So(tallies[0].Stats.RawPoints, ShouldBeNil)

			So(tallies[1].Stats.Matches, ShouldEqual, 10)
			So(tallies[1].Stats.Goals, ShouldEqual, 5)
			So(tallies[1].Stats.YellowCards, ShouldEqual, 1)

			So(tallies[2].Stats.RawPoints, ShouldNotBeNil)
			So(*tallies[2].Stats.RawPoints, ShouldEqual, 0)
		})

		Convey("An empty result is not an error", func() {
			sel.body = []byte(`[]`)
			tallies, err := src.Fetch(context.Background())
			So(err, ShouldBeNil)
			So(tallies, ShouldBeEmpty)
		})

		Convey("Rows without ids are malformed", func() {
			sel.body = []byte(`[{"roster_id":"u17","matches":3}]`)
			_, err := src.Fetch(context.Background())
			So(errors.Is(err, source.ErrMalformed), ShouldBeTrue)
		})

		Convey("A non-array body is malformed", func() {
			sel.body = []byte(`{"message":"nope"}`)
			_, err := src.Fetch(context.Background())
			So(errors.Is(err, source.ErrMalformed), ShouldBeTrue)
		})
	})
}

func TestSourceBreaker(t *testing.T) {
	Convey("Given a failing upstream", t, func() {
		sel := &fakeSelector{err: errors.New("connection refused")}
		src := New(sel, WithBreaker(1, time.Hour, 0.5))

		Convey("Failures are reported as unavailable", func() {
			_, err := src.Fetch(context.Background())
			So(errors.Is(err, source.ErrUnavailable), ShouldBeTrue)
			So(src.State(), ShouldEqual, gobreaker.StateClosed)
		})

		Convey("Three failures open the breaker and stop calls upstream", func() {
			for range 3 {
				_, _ = src.Fetch(context.Background())
			}
			So(src.State(), ShouldEqual, gobreaker.StateOpen)
			So(sel.Calls(), ShouldEqual, 3)

			_, err := src.Fetch(context.Background())
			So(errors.Is(err, source.ErrUnavailable), ShouldBeTrue)
			So(sel.Calls(), ShouldEqual, 3)
		})
	})

	Convey("Given a breaker with a short open timeout", t, func() {
		sel := &fakeSelector{err: errors.New("timeout")}
		src := New(sel, WithBreaker(1, 20*time.Millisecond, 0.5))
		for range 3 {
			_, _ = src.Fetch(context.Background())
		}
		So(src.State(), ShouldEqual, gobreaker.StateOpen)

		Convey("A successful probe after the timeout closes it again", func() {
			time.Sleep(40 * time.Millisecond)
			sel.mu.Lock()
			sel.err = nil
			sel.body = []byte(`[]`)
			sel.mu.Unlock()

			_, err := src.Fetch(context.Background())
			So(err, ShouldBeNil)
			So(src.State(), ShouldEqual, gobreaker.StateClosed)
		})
	})
}

func TestNewClientSelector(t *testing.T) {
	Convey("A client without url or key is rejected", t, func() {
		_, err := NewClientSelector("", "")
		So(err, ShouldNotBeNil)
	})
}
