// Package scheduler runs the periodic inventory maintenance jobs: the hold
// sweeper, the stale PENDING booking expiry and the optional reconciler.
package scheduler

import (
    "context"
    "fmt"
    "time"

    "github.com/go-co-op/gocron/v2"
    "go.uber.org/zap"

    "github.com/iliyamo/seat-inventory/internal/config"
    "github.com/iliyamo/seat-inventory/internal/service"
)

// Sweeper deletes lapsed holds.
type Sweeper interface {
    SweepExpired(ctx context.Context) (int64, error)
}

// PendingExpirer expires unpaid bookings.
type PendingExpirer interface {
    ExpireStalePending(ctx context.Context) (int, error)
}

// Synchronizer reconciles every schedule.
type Synchronizer interface {
    SynchronizeAll(ctx context.Context) (service.Summary, error)
}

// Jobs are the tasks to schedule.  A nil task is skipped.
type Jobs struct {
    Sweeper   Sweeper
    Pending   PendingExpirer
    Reconcile Synchronizer
}

// Start registers every job whose interval in cfg is positive and starts
// the scheduler.  Each job runs in singleton mode; when locker is not nil
// only the instance holding the lock runs a given tick.  The caller shuts
// the scheduler down.
func Start(cfg config.JobsConfig, jobs Jobs, locker gocron.Locker, log *zap.Logger) (gocron.Scheduler, error) {
    opts := []gocron.SchedulerOption{gocron.WithLocation(time.UTC)}
    if locker != nil {
        opts = append(opts, gocron.WithDistributedLocker(locker))
    }
    s, err := gocron.NewScheduler(opts...)
    if err != nil {
        return nil, fmt.Errorf("new scheduler: %w", err)
    }

    add := func(name string, every time.Duration, run func(context.Context) error) error {
        if every <= 0 {
            log.Info("job disabled", zap.String("job", name))
            return nil
        }
        _, err := s.NewJob(
            gocron.DurationJob(every),
            gocron.NewTask(func() {
                ctx, cancel := context.WithTimeout(context.Background(), every)
                defer cancel()
                started := time.Now()
                if err := run(ctx); err != nil {
                    log.Error("job failed", zap.String("job", name), zap.Error(err))
                    return
                }
                log.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(started)))
            }),
            gocron.WithName(name),
            gocron.WithSingletonMode(gocron.LimitModeReschedule),
        )
        if err != nil {
            return fmt.Errorf("schedule %s: %w", name, err)
        }
        log.Info("job scheduled", zap.String("job", name), zap.Duration("every", every))
        return nil
    }

    if jobs.Sweeper != nil {
        if err := add("sweep-expired-holds", cfg.SweepInterval, func(ctx context.Context) error {
            _, err := jobs.Sweeper.SweepExpired(ctx)
            return err
        }); err != nil {
            return nil, err
        }
    }
    if jobs.Pending != nil {
        if err := add("expire-stale-pending", cfg.PendingInterval, func(ctx context.Context) error {
            _, err := jobs.Pending.ExpireStalePending(ctx)
            return err
        }); err != nil {
            return nil, err
        }
    }
    if jobs.Reconcile != nil {
        if err := add("reconcile-schedules", cfg.ReconcileInterval, func(ctx context.Context) error {
            sum, err := jobs.Reconcile.SynchronizeAll(ctx)
            if err == nil && sum.Failed > 0 {
                err = fmt.Errorf("%d schedule(s) failed to reconcile", sum.Failed)
            }
            return err
        }); err != nil {
            return nil, err
        }
    }
    s.Start()
    return s, nil
}
