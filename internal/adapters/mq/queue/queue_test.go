package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func goal(id string) model.StatEvent {
	return model.StatEvent{EventID: id, RosterID: "u17", PlayerID: "striker", Kind: model.KindGoal}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with room for two events", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(2))

		So(q.Len(), ShouldEqual, 0)
		So(q.Cap(), ShouldEqual, 2)

		Convey("Events come out in the order they went in", func() {
			So(q.Enqueue(ctx, goal("e1")), ShouldBeNil)
			So(q.Enqueue(ctx, goal("e2")), ShouldBeNil)
			So(q.Len(), ShouldEqual, 2)

			out := q.Dequeue(ctx)
			So((<-out).EventID, ShouldEqual, "e1")
			So((<-out).EventID, ShouldEqual, "e2")
			So(q.Len(), ShouldEqual, 0)
		})

		Convey("A full queue pushes back without blocking", func() {
			So(q.Enqueue(ctx, goal("e1")), ShouldBeNil)
			So(q.Enqueue(ctx, goal("e2")), ShouldBeNil)
			So(errors.Is(q.Enqueue(ctx, goal("e3")), ErrFull), ShouldBeTrue)
			So(q.Len(), ShouldEqual, 2)
		})

		Convey("A cancelled context is rejected", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(errors.Is(q.Enqueue(cctx, goal("e1")), context.Canceled), ShouldBeTrue)
			So(q.Len(), ShouldEqual, 0)
		})

		Convey("Closing drains what is buffered and then ends the stream", func() {
			So(q.Enqueue(ctx, goal("e1")), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			So(errors.Is(q.Enqueue(ctx, goal("late")), ErrClosed), ShouldBeTrue)

			var got []string
			for ev := range q.Dequeue(ctx) {
				got = append(got, ev.EventID)
			}
			So(got, ShouldResemble, []string{"e1"})
			So(q.Close(), ShouldBeNil)
		})

		Convey("Dequeue stops when its context ends", func() {
			dctx, cancel := context.WithCancel(ctx)
			out := q.Dequeue(dctx)
			cancel()

			select {
			case _, ok := <-out:
				So(ok, ShouldBeFalse)
			case <-time.After(time.Second):
				So("dequeue channel still open", ShouldBeEmpty)
			}
		})
	})

	Convey("Given a default queue", t, func() {
		So(NewInMemoryQueue(WithCapacity(-1)).Cap(), ShouldEqual, defaultCapacity)
	})
}

func TestInMemoryQueueConcurrency(t *testing.T) {
	Convey("Given producers and consumers sharing a queue", t, func() {
		ctx := context.Background()
		q := NewInMemoryQueue(WithCapacity(64))
		const producers, perProducer = 8, 200

		var consumed sync.Map
		var consumers sync.WaitGroup
		for i := 0; i < 4; i++ {
			consumers.Add(1)
			go func() {
				defer consumers.Done()
				for ev := range q.Dequeue(ctx) {
					consumed.Store(ev.EventID, true)
				}
			}()
		}

		var wg sync.WaitGroup
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for j := 0; j < perProducer; j++ {
					ev := goal(fmt.Sprintf("e-%d-%d", p, j))
					for errors.Is(q.Enqueue(ctx, ev), ErrFull) {
						time.Sleep(time.Millisecond)
					}
				}
			}(p)
		}
		wg.Wait()
		So(q.Close(), ShouldBeNil)
		consumers.Wait()

		Convey("Every event is delivered exactly once", func() {
			n := 0
			consumed.Range(func(_, _ any) bool { n++; return true })
			So(n, ShouldEqual, producers*perProducer)
			So(q.Len(), ShouldEqual, 0)
		})
	})
}
