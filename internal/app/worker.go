package app

import (
	"context"
	"log"
	"time"

	"academy/internal/queue"
)

// RunWorker consumes background jobs and sweeps stale check-ins until ctx
// ends.
func (a *App) RunWorker(ctx context.Context) error {
	jobs, err := a.Queue.Consume(ctx)
	if err != nil {
		return err
	}
	go a.sweep(ctx)

	for msg := range jobs {
		a.handle(ctx, msg)
	}
	return nil
}

func (a *App) handle(ctx context.Context, msg queue.Message) {
	var err error
	switch msg.Type {
	case queue.TypeBroadcastUpload:
		err = a.Walkie.Handle(ctx, msg)
	default:
		log.Printf("worker: unknown job type %q", msg.Type)
		return
	}
	if err != nil {
		a.Reporter.Error("worker: "+msg.Type, err, map[string]interface{}{"body": string(msg.Body)})
	}
}

func (a *App) sweep(ctx context.Context) {
	interval := a.Config.SweepInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Attendance.CloseStale(ctx, a.Config.StaleCheckin)
			if err != nil {
				a.Reporter.Error("worker: sweep stale check-ins", err, nil)
				continue
			}
			if n > 0 {
				log.Printf("worker: closed %d stale check-ins", n)
			}
		}
	}
}
