package push

import (
	"context"
	"log/slog"
	"sync"

	"github.com/article-live-api/internal/domain"
)

// Worker consumes domain events from the bus and drives generate-then-fanout.
// Recipient selection per kind: likes, comments and replies target the owner
// of the entity acted upon; new articles and events go to everyone except
// the actor. An event whose only recipient is the actor is dropped.
type Worker struct {
	events <-chan domain.Event
	fanout *Fanout

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewWorker(events <-chan domain.Event, fanout *Fanout) *Worker {
	return &Worker{events: events, fanout: fanout, stop: make(chan struct{})}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop waits for the worker loop to drain. In-flight deliveries complete.
func (w *Worker) Stop() {
	close(w.stop)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.events:
			if !ok {
				return
			}
			w.handle(ev)
		}
	}
}

func (w *Worker) handle(ev domain.Event) {
	rec := Generate(ev.Kind, ev.Subject)
	if rec.IsZero() {
		return
	}
	ctx := context.Background()

	var err error
	if rec.Recipient == "" {
		err = w.fanout.NotifyAll(ctx, rec)
	} else if rec.Recipient != rec.Actor {
		err = w.fanout.NotifyUser(ctx, rec.Recipient, rec)
	}
	if err != nil {
		slog.Warn("notification fanout failed", "kind", ev.Kind, "err", err)
	}
}
