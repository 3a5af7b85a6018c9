// Package schedule posts the tracked user's profile stats to the channel on a
// cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/octorelay/octorelay/common/logger"
	"github.com/octorelay/octorelay/internal/githubapi"
	"github.com/octorelay/octorelay/internal/model"
	"github.com/octorelay/octorelay/internal/sink"
)

const statsKind = "daily_stats"

type StatsSource interface {
	UserStats(ctx context.Context) (githubapi.Stats, error)
}

// StatsJob implements cron.Job.
type StatsJob struct {
	stats   StatsSource
	sink    sink.Sink
	timeout time.Duration
}

func NewStatsJob(stats StatsSource, sink sink.Sink) *StatsJob {
	return &StatsJob{stats: stats, sink: sink, timeout: 30 * time.Second}
}

func (j *StatsJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.RunContext(ctx); err != nil {
		slog.ErrorContext(ctx, "daily stats not posted", "error", err)
	}
}

func (j *StatsJob) RunContext(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "octorelay.schedule"})

	stats, err := j.stats.UserStats(ctx)
	if err != nil {
		return err
	}

	return j.sink.Send(ctx, model.RelayEvent{
		Kind:         statsKind,
		RepoFullName: stats.Login,
		RenderedText: FormatStats(stats),
	})
}

func FormatStats(s githubapi.Stats) string {
	return fmt.Sprintf("Daily GitHub stats: ⭐ %d repos, 👥 %d followers.", s.PublicRepos, s.Followers)
}

type Scheduler struct {
	cron *cron.Cron
}

// New schedules job on a standard five-field cron spec, e.g. "0 10 * * *".
func New(spec string, job cron.Job) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddJob(spec, job); err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
