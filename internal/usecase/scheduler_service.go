package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type ScheduleMode string

const (
	ModeLive          ScheduleMode = "live"
	ModeActiveWindow  ScheduleMode = "active_window"
	ModeMatchDay      ScheduleMode = "match_day"
	ModeUpcoming      ScheduleMode = "upcoming"
	ModeMinimal       ScheduleMode = "minimal"
	ModeErrorFallback ScheduleMode = "error_fallback"
)

// Schedule is one polling decision: how long to sleep and whether the
// provider is worth asking. The mode never gates the lifecycle cycle
// itself; locking and scoring run on every wake.
type Schedule struct {
	Mode            ScheduleMode  `json:"mode"`
	Interval        time.Duration `json:"-"`
	IntervalSeconds int           `json:"interval_seconds"`
	DoProviderCheck bool          `json:"do_provider_check"`
	Reason          string        `json:"reason"`
}

// FixtureBuckets are the counts the schedule decision was based on.
type FixtureBuckets struct {
	Live             int `json:"live"`
	EndingSoon       int `json:"ending_soon"`
	RecentlyFinished int `json:"recently_finished"`
	LaterToday       int `json:"later_today"`
	NextThreeDays    int `json:"next_three_days"`
}

type SchedulerConfig struct {
	LiveInterval          time.Duration
	ActiveWindowInterval  time.Duration
	UpcomingInterval      time.Duration
	MinimalInterval       time.Duration
	ErrorFallbackInterval time.Duration
	// ActiveWindow is the "ending soon" horizon on both sides of now.
	ActiveWindow time.Duration
	// ProviderCheckMinGap throttles batched provider checks independently
	// of the lock/process cadence. Live mode bypasses it; the client's own
	// rate limiter still applies there.
	ProviderCheckMinGap time.Duration
	// MaxCycleFailures trips the breaker: the loop stops and stays stopped
	// until Start is called again by an operator.
	MaxCycleFailures int
	StopGracePeriod  time.Duration
}

func normalizeSchedulerConfig(cfg SchedulerConfig) SchedulerConfig {
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = 120 * time.Second
	}
	if cfg.ActiveWindowInterval <= 0 {
		cfg.ActiveWindowInterval = 180 * time.Second
	}
	if cfg.UpcomingInterval <= 0 {
		cfg.UpcomingInterval = 30 * time.Minute
	}
	if cfg.MinimalInterval <= 0 {
		cfg.MinimalInterval = time.Hour
	}
	if cfg.ErrorFallbackInterval <= 0 {
		cfg.ErrorFallbackInterval = 30 * time.Minute
	}
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = 2 * time.Hour
	}
	if cfg.ProviderCheckMinGap <= 0 {
		cfg.ProviderCheckMinGap = 20 * time.Minute
	}
	if cfg.MaxCycleFailures <= 0 {
		cfg.MaxCycleFailures = 5
	}
	if cfg.StopGracePeriod <= 0 {
		cfg.StopGracePeriod = 30 * time.Second
	}
	return cfg
}

// stop-responsiveness bound for interval sleeps
const sleepSubIncrement = 5 * time.Second

type SchedulerStatus struct {
	Running             bool           `json:"running"`
	Halted              bool           `json:"halted"`
	Schedule            Schedule       `json:"schedule"`
	Buckets             FixtureBuckets `json:"buckets"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	LastCycleAt         *time.Time     `json:"last_cycle_at,omitempty"`
	LastProviderCheckAt *time.Time     `json:"last_provider_check_at,omitempty"`
}

// SchedulerService is the single background worker that decides, purely from
// current fixture data, how often to re-check external state, and drives one
// lifecycle cycle per wake. Runs as one instance per process; the
// processor's idempotent predicates keep a manual run harmless if it ever
// overlaps a scheduled one.
type SchedulerService struct {
	fixtureRepo  fixture.Repository
	lifecycle    *LifecycleService
	providerSync *ProviderSyncService
	cfg          SchedulerConfig
	logger       *logging.Logger
	now          func() time.Time

	mu                  sync.Mutex
	running             bool
	halted              bool
	consecutiveFailures int
	lastSchedule        Schedule
	lastBuckets         FixtureBuckets
	lastCycleAt         *time.Time
	lastProviderCheckAt *time.Time
	stopCh              chan struct{}
	doneCh              chan struct{}
	stopSignaled        bool
}

func NewSchedulerService(
	fixtureRepo fixture.Repository,
	lifecycle *LifecycleService,
	providerSync *ProviderSyncService,
	cfg SchedulerConfig,
	logger *logging.Logger,
) *SchedulerService {
	if logger == nil {
		logger = logging.Default()
	}

	return &SchedulerService{
		fixtureRepo:  fixtureRepo,
		lifecycle:    lifecycle,
		providerSync: providerSync,
		cfg:          normalizeSchedulerConfig(cfg),
		logger:       logger,
		now:          time.Now,
	}
}

// ComputeSchedule picks the polling cadence from the current fixture mix.
// Branches are evaluated in order; the first match wins.
func (s *SchedulerService) ComputeSchedule(ctx context.Context, now time.Time) (Schedule, FixtureBuckets, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SchedulerService.ComputeSchedule")
	defer span.End()

	var buckets FixtureBuckets

	live, err := s.fixtureRepo.ListByStates(ctx, fixture.InProgressStates())
	if err != nil {
		return Schedule{}, buckets, fmt.Errorf("list in-progress fixtures: %w", err)
	}
	buckets.Live = len(live)

	// The horizon reaches back one active window so fixtures whose kickoff
	// already passed but never got a provider update still keep the poll hot.
	horizon, err := s.fixtureRepo.ListByKickoffRange(ctx, now.Add(-s.cfg.ActiveWindow), now.Add(72*time.Hour))
	if err != nil {
		return Schedule{}, buckets, fmt.Errorf("list fixtures within three days: %w", err)
	}

	recentlyFinished, err := s.fixtureRepo.ListFinishedSince(ctx, now.Add(-s.cfg.ActiveWindow))
	if err != nil {
		return Schedule{}, buckets, fmt.Errorf("list recently finished fixtures: %w", err)
	}
	buckets.RecentlyFinished = len(recentlyFinished)

	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
	var nearestKickoff time.Time
	for _, fx := range horizon {
		if fx.State.Terminal() || fx.State == fixture.StatePostponed {
			continue
		}
		// In-progress and finished fixtures are counted by their own queries.
		if fx.State.InProgress() || fx.State.Finished() {
			continue
		}
		if nearestKickoff.IsZero() || fx.KickoffAt.Before(nearestKickoff) {
			nearestKickoff = fx.KickoffAt
		}
		if fx.KickoffAt.Sub(now) <= s.cfg.ActiveWindow {
			buckets.EndingSoon++
		} else if fx.KickoffAt.Before(endOfDay) {
			buckets.LaterToday++
		} else {
			buckets.NextThreeDays++
		}
	}

	switch {
	case buckets.Live > 0:
		return Schedule{
			Mode:            ModeLive,
			Interval:        s.cfg.LiveInterval,
			DoProviderCheck: true,
			Reason:          fmt.Sprintf("%d fixture(s) in progress", buckets.Live),
		}, buckets, nil

	case buckets.EndingSoon > 0 || buckets.RecentlyFinished > 0:
		return Schedule{
			Mode:            ModeActiveWindow,
			Interval:        s.cfg.ActiveWindowInterval,
			DoProviderCheck: true,
			Reason:          fmt.Sprintf("%d fixture(s) starting soon, %d recently finished", buckets.EndingSoon, buckets.RecentlyFinished),
		}, buckets, nil

	case buckets.LaterToday > 0:
		interval := matchDayInterval(nearestKickoff.Sub(now))
		return Schedule{
			Mode:            ModeMatchDay,
			Interval:        interval,
			DoProviderCheck: true,
			Reason:          fmt.Sprintf("%d fixture(s) later today, nearest in %s", buckets.LaterToday, nearestKickoff.Sub(now).Round(time.Minute)),
		}, buckets, nil

	case buckets.NextThreeDays > 0:
		return Schedule{
			Mode:            ModeUpcoming,
			Interval:        s.cfg.UpcomingInterval,
			DoProviderCheck: false,
			Reason:          fmt.Sprintf("%d fixture(s) within three days", buckets.NextThreeDays),
		}, buckets, nil

	default:
		return Schedule{
			Mode:            ModeMinimal,
			Interval:        s.cfg.MinimalInterval,
			DoProviderCheck: false,
			Reason:          "no fixtures within three days",
		}, buckets, nil
	}
}

// matchDayInterval buckets the cadence by time to the nearest kickoff.
func matchDayInterval(untilKickoff time.Duration) time.Duration {
	switch {
	case untilKickoff < 2*time.Hour:
		return 5 * time.Minute
	case untilKickoff < 6*time.Hour:
		return 10 * time.Minute
	default:
		return 15 * time.Minute
	}
}

// Start launches the worker loop. Calling Start on a running scheduler is a
// no-op. Starting after a breaker halt is the manual restart path and resets
// the failure count.
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lifecycle == nil {
		return fmt.Errorf("scheduler has no lifecycle service to drive")
	}
	if s.running {
		return nil
	}

	s.running = true
	s.halted = false
	s.consecutiveFailures = 0
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.stopSignaled = false

	go s.runLoop(s.stopCh, s.doneCh)

	s.logger.Info("scheduler started")
	return nil
}

// Stop signals the loop and joins it with a bounded timeout.
func (s *SchedulerService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh := s.stopCh
	doneCh := s.doneCh
	signaled := s.stopSignaled
	s.stopSignaled = true
	s.mu.Unlock()

	if !signaled {
		close(stopCh)
	}

	select {
	case <-doneCh:
	case <-time.After(s.cfg.StopGracePeriod):
		// The worker still owns the running slot and releases it when it
		// finally observes the closed stop channel, so a premature Start
		// cannot put two loops in flight.
		s.logger.Warn("scheduler worker did not stop within grace period")
		return fmt.Errorf("scheduler worker did not stop within %s", s.cfg.StopGracePeriod)
	}

	s.logger.Info("scheduler stopped")
	return nil
}

func (s *SchedulerService) Status(ctx context.Context) SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SchedulerStatus{
		Running:             s.running && !s.halted,
		Halted:              s.halted,
		Schedule:            s.lastSchedule,
		Buckets:             s.lastBuckets,
		ConsecutiveFailures: s.consecutiveFailures,
		LastCycleAt:         s.lastCycleAt,
		LastProviderCheckAt: s.lastProviderCheckAt,
	}
}

// RunCycleOnce is the manual trigger used by administrative actions. It
// performs one provider check plus one lifecycle cycle immediately,
// regardless of the loop's cadence. A breaker-halted scheduler refuses the
// trigger with ErrSchedulerHalted; Start clears the halt first.
func (s *SchedulerService) RunCycleOnce(ctx context.Context, withProviderCheck bool) (CycleResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SchedulerService.RunCycleOnce")
	defer span.End()

	s.mu.Lock()
	halted := s.halted
	s.mu.Unlock()
	if halted {
		return CycleResult{}, ErrSchedulerHalted
	}
	if s.lifecycle == nil {
		return CycleResult{}, fmt.Errorf("scheduler has no lifecycle service to drive")
	}

	if withProviderCheck && s.providerSync != nil {
		if _, err := s.providerSync.SyncActiveFixtures(ctx); err != nil {
			s.logger.WarnContext(ctx, "manual provider check failed, continuing with stored state", "error", err)
		} else {
			s.markProviderCheck()
		}
	}

	result, err := s.lifecycle.RunCycle(ctx)
	if err == nil {
		s.markCycle()
	}
	return result, err
}

func (s *SchedulerService) runLoop(stopCh <-chan struct{}, doneCh chan struct{}) {
	defer func() {
		// Release the running slot only if this worker still owns it, so a
		// worker that outlived its stop grace period cannot clobber a
		// successor started later.
		s.mu.Lock()
		if s.doneCh == doneCh {
			s.running = false
		}
		s.mu.Unlock()
		close(doneCh)
	}()

	ctx := context.Background()

	for {
		now := s.now().UTC()

		sched, buckets, err := s.ComputeSchedule(ctx, now)
		if err != nil {
			sched = Schedule{
				Mode:            ModeErrorFallback,
				Interval:        s.cfg.ErrorFallbackInterval,
				DoProviderCheck: false,
				Reason:          err.Error(),
			}
			s.logger.Error("schedule computation failed, using fallback cadence", "error", err)
		}
		sched.IntervalSeconds = int(sched.Interval / time.Second)

		s.mu.Lock()
		s.lastSchedule = sched
		s.lastBuckets = buckets
		s.mu.Unlock()

		if s.shouldCheckProvider(sched, now) {
			if _, err := s.providerSync.SyncActiveFixtures(ctx); err != nil {
				// Transient provider trouble is not a cycle failure; the
				// lock/process pass still runs on stored state.
				s.logger.Warn("provider check failed, continuing with stored state", "error", err)
			} else {
				s.markProviderCheck()
			}
		}

		// The cycle runs on every wake no matter the mode. Cadence may
		// starve freshness, never correctness.
		if _, err := s.lifecycle.RunCycle(ctx); err != nil {
			if s.recordCycleFailure(err) {
				return
			}
		} else {
			s.markCycle()
			s.resetFailures()
		}

		if !s.sleep(sched.Interval, stopCh) {
			return
		}
	}
}

func (s *SchedulerService) shouldCheckProvider(sched Schedule, now time.Time) bool {
	if !sched.DoProviderCheck || s.providerSync == nil {
		return false
	}
	if sched.Mode == ModeLive {
		return true
	}

	s.mu.Lock()
	last := s.lastProviderCheckAt
	s.mu.Unlock()

	return last == nil || now.Sub(*last) >= s.cfg.ProviderCheckMinGap
}

// sleep waits for the interval in bounded sub-increments so a stop signal is
// honored promptly even during the longest cadences. Returns false when the
// loop should exit.
func (s *SchedulerService) sleep(interval time.Duration, stopCh <-chan struct{}) bool {
	remaining := interval
	for remaining > 0 {
		step := sleepSubIncrement
		if remaining < step {
			step = remaining
		}
		select {
		case <-stopCh:
			return false
		case <-time.After(step):
		}
		remaining -= step
	}
	return true
}

func (s *SchedulerService) recordCycleFailure(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consecutiveFailures++
	s.logger.Error("lifecycle cycle failed",
		"error", err,
		"consecutive_failures", s.consecutiveFailures,
		"max_failures", s.cfg.MaxCycleFailures,
	)

	if s.consecutiveFailures >= s.cfg.MaxCycleFailures {
		s.halted = true
		s.running = false
		s.logger.Error("scheduler halted after repeated cycle failures; manual restart required",
			"consecutive_failures", s.consecutiveFailures,
		)
		return true
	}
	return false
}

func (s *SchedulerService) resetFailures() {
	s.mu.Lock()
	s.consecutiveFailures = 0
	s.mu.Unlock()
}

func (s *SchedulerService) markCycle() {
	now := s.now().UTC()
	s.mu.Lock()
	s.lastCycleAt = &now
	s.mu.Unlock()
}

func (s *SchedulerService) markProviderCheck() {
	now := s.now().UTC()
	s.mu.Lock()
	s.lastProviderCheckAt = &now
	s.mu.Unlock()
}
