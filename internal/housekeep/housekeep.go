// Package housekeep runs background gocron jobs that are not part of
// job scheduling policy: a stat-store staleness reaper and a periodic
// registry-size debug log (spec §4.8 supplemental housekeeping).
package housekeep

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"loadgrid/internal/logging"
)

// StatStore is the subset of internal/stats.Store housekeep reaps.
type StatStore interface {
	ReapStale(olderThan time.Time) int
	Size() int
}

// SizeSource reports a named component's current size for the
// periodic debug log (listener connection counts, registry sizes).
type SizeSource struct {
	Name string
	Size func() int
}

// Options configures a Keeper.
type Options struct {
	// StatStore, when set, is reaped every StatSweepInterval.
	StatStore StatStore
	// StatStaleAfter is how old a JobStats' last-update must be before
	// the reaper drops it. Defaults to 30 minutes.
	StatStaleAfter time.Duration
	// StatSweepInterval is how often the reaper runs. Defaults to 5
	// minutes.
	StatSweepInterval time.Duration

	// Sizes are logged at debug level every SizeLogInterval. Defaults
	// to 1 minute.
	Sizes           []SizeSource
	SizeLogInterval time.Duration

	Logger *slog.Logger
}

const (
	defaultStatStaleAfter    = 30 * time.Minute
	defaultStatSweepInterval = 5 * time.Minute
	defaultSizeLogInterval   = time.Minute
)

// Keeper owns a gocron scheduler running the two housekeeping jobs
// (spec "Housekeeping (new, internal-only)"): the stat-store reaper and
// the periodic size log.
type Keeper struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

// New constructs a Keeper and registers its jobs. Call Start to begin
// running them.
func New(opts Options) (*Keeper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("housekeep: create scheduler: %w", err)
	}

	k := &Keeper{
		scheduler: s,
		logger:    logging.Default(opts.Logger).With("component", "housekeep"),
	}

	if opts.StatStore != nil {
		staleAfter := opts.StatStaleAfter
		if staleAfter <= 0 {
			staleAfter = defaultStatStaleAfter
		}
		sweepInterval := opts.StatSweepInterval
		if sweepInterval <= 0 {
			sweepInterval = defaultStatSweepInterval
		}
		_, err := s.NewJob(
			gocron.DurationJob(sweepInterval),
			gocron.NewTask(k.reapStaleStats, opts.StatStore, staleAfter),
			gocron.WithName("stat-store-reaper"),
		)
		if err != nil {
			return nil, fmt.Errorf("housekeep: create stat reaper job: %w", err)
		}
	}

	if len(opts.Sizes) > 0 {
		logInterval := opts.SizeLogInterval
		if logInterval <= 0 {
			logInterval = defaultSizeLogInterval
		}
		_, err := s.NewJob(
			gocron.DurationJob(logInterval),
			gocron.NewTask(k.logSizes, opts.Sizes),
			gocron.WithName("registry-size-log"),
		)
		if err != nil {
			return nil, fmt.Errorf("housekeep: create size-log job: %w", err)
		}
	}

	return k, nil
}

// Start begins executing the registered jobs.
func (k *Keeper) Start() { k.scheduler.Start() }

// Stop shuts down the scheduler and waits for any in-flight job.
func (k *Keeper) Stop() error { return k.scheduler.Shutdown() }

func (k *Keeper) reapStaleStats(store StatStore, staleAfter time.Duration) {
	removed := store.ReapStale(time.Now().Add(-staleAfter))
	if removed > 0 {
		k.logger.Debug("reaped stale job stats", "removed", removed, "remaining", store.Size())
	}
}

func (k *Keeper) logSizes(sizes []SizeSource) {
	for _, src := range sizes {
		k.logger.Debug("registry size", "name", src.Name, "size", src.Size())
	}
}
