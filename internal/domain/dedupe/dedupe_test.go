package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	dedupe "github.com/artemshundrik/tosho-crm-sub001/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording events", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the event is new", func() {
				seen := d.SeenAndRecord(ctx, "event-1")

				Convey("Then it should return false and record the event", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the event was already seen", func() {
				d.SeenAndRecord(ctx, "event-1")
				seen := d.SeenAndRecord(ctx, "event-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When unrecording events", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the event exists", func() {
				d.SeenAndRecord(ctx, "event-1")
				d.Unrecord(ctx, "event-1")

				Convey("Then it can be recorded again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
				})
			})

			Convey("And the event doesn't exist", func() {
				d.Unrecord(ctx, "nonexistent")

				Convey("Then it should not affect the size", func() {
					So(d.Size(), ShouldEqual, 0)
				})
			})
		})

		Convey("When using bounded mode with eviction", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, id := range []string{"event-1", "event-2", "event-3", "event-4"} {
				So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
			}

			Convey("Then the oldest id is evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "event-4"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "event-3"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "event-2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 3)
			})
		})

		Convey("When an unrecorded id leaves a gap", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			d.SeenAndRecord(ctx, "a")
			d.SeenAndRecord(ctx, "b")
			d.SeenAndRecord(ctx, "c")
			d.Unrecord(ctx, "a")
			d.SeenAndRecord(ctx, "d")

			Convey("Then no live id is evicted until the set is full again", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
			})
		})

		Convey("When the same id churns through record and unrecord", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, "hot")
				d.Unrecord(ctx, "hot")
			}
			d.SeenAndRecord(ctx, "x")
			d.SeenAndRecord(ctx, "y")
			d.SeenAndRecord(ctx, "z")

			Convey("Then eviction still follows arrival order", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(ctx, "z"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "y"), ShouldBeTrue)
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			const numEvents = 1000
			for i := 0; i < numEvents; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i)), ShouldBeFalse)
			}

			Convey("Then all events should be recorded without eviction", func() {
				So(d.Size(), ShouldEqual, int64(numEvents))
				for i := 0; i < numEvents; i++ {
					So(d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i)), ShouldBeTrue)
				}
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const numGoroutines = 10
		const eventsPerGoroutine = 100

		Convey("When multiple goroutines record events concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(goroutineID int) {
					defer wg.Done()
					for j := 0; j < eventsPerGoroutine; j++ {
						d.SeenAndRecord(ctx, fmt.Sprintf("event-%d-%d", goroutineID, j))
					}
				}(i)
			}
			wg.Wait()

			Convey("Then all events should be recorded", func() {
				So(d.Size(), ShouldEqual, int64(numGoroutines*eventsPerGoroutine))
			})
		})

		Convey("When the same id races from many goroutines", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, "contended") {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one caller wins", func() {
				So(fresh, ShouldEqual, 1)
			})
		})
	})
}

func TestDedupeEdgeCases(t *testing.T) {
	Convey("Given a deduper with edge cases", t, func() {
		ctx := context.Background()

		Convey("When recording very long strings", func() {
			d := dedupe.NewInMemoryDeduper()
			longString := strings.Repeat("a", 10000)

			Convey("Then it should handle them", func() {
				So(d.SeenAndRecord(ctx, longString), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, longString), ShouldBeTrue)
			})
		})

		Convey("When using nil context", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should not panic", func() {
				So(func() { d.SeenAndRecord(nil, "event-1") }, ShouldNotPanic) //nolint:staticcheck
				So(func() { d.Unrecord(nil, "event-1") }, ShouldNotPanic)       //nolint:staticcheck
			})
		})

		Convey("When using a max size of one", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1))
			d.SeenAndRecord(ctx, "event-1")
			d.SeenAndRecord(ctx, "event-2")

			Convey("Then only the newest id is kept", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, "event-2"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
			})
		})
	})
}
