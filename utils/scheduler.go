package utils

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduledJob is one periodic task registered with the scheduler.
type ScheduledJob struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// InitializeScheduler registers jobs on a fresh cron instance and starts it.
// The returned cron is stopped by the caller on shutdown.
func InitializeScheduler(jobs ...ScheduledJob) (*cron.Cron, error) {
	c := cron.New()

	for _, job := range jobs {
		job := job
		if job.Timeout <= 0 {
			job.Timeout = 10 * time.Minute
		}
		_, err := c.AddFunc(job.Spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), job.Timeout)
			defer cancel()

			started := time.Now()
			Log.Info("[SCHEDULER] job started", "job", job.Name)
			if err := job.Run(ctx); err != nil {
				Log.Error("[SCHEDULER] job failed", "job", job.Name, "error", err)
				return
			}
			Log.Info("[SCHEDULER] job finished", "job", job.Name, "took", time.Since(started).String())
		})
		if err != nil {
			return nil, err
		}
		Log.Info("[SCHEDULER] job registered", "job", job.Name, "spec", job.Spec)
	}

	c.Start()
	return c, nil
}
