// Package jobs wires the OTP maintenance operations to a cron schedule. The
// OTP service itself never schedules anything.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = time.Minute

// Maintainer is the subset of the OTP service the jobs drive.
type Maintainer interface {
	SweepExpired(ctx context.Context) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the sweep and purge jobs for the non-empty specs.
// It returns nil when neither is configured.
func NewScheduler(otps Maintainer, sweepSpec, purgeSpec string) (*Scheduler, error) {
	if sweepSpec == "" && purgeSpec == "" {
		return nil, nil
	}

	c := cron.New()
	if sweepSpec != "" {
		if _, err := c.AddFunc(sweepSpec, func() { run("sweep expired codes", otps.SweepExpired) }); err != nil {
			return nil, err
		}
		log.Printf("Scheduled OTP sweep: %s", sweepSpec)
	}
	if purgeSpec != "" {
		if _, err := c.AddFunc(purgeSpec, func() { run("purge expired codes", otps.PurgeExpired) }); err != nil {
			return nil, err
		}
		log.Printf("Scheduled OTP purge: %s", purgeSpec)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func run(name string, job func(ctx context.Context) (int64, error)) {
	log.Printf("Running job: %s...", name)
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := job(ctx)
	if err != nil {
		log.Printf("Error running job %s: %v", name, err)
		return
	}
	log.Printf("Job %s affected %d code(s)", name, n)
}
