// Package monitor runs the real-time detection pipeline: it tails the
// audit event stream, classifies and correlates events, opens incidents,
// and drives automated response and alerting.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stayops-systems/sentinel/internal/classifier"
	"github.com/stayops-systems/sentinel/internal/correlation"
	"github.com/stayops-systems/sentinel/internal/logging"
	"github.com/stayops-systems/sentinel/internal/models"
	"github.com/stayops-systems/sentinel/internal/repository"
)

var (
	// ErrAlreadyRunning is returned by Start when the monitor is not stopped.
	ErrAlreadyRunning = errors.New("monitor already running")
	// ErrNotRunning is returned by Stop when the monitor is not running.
	ErrNotRunning = errors.New("monitor not running")
)

// Tick names, used in logs and metrics.
const (
	tickIngestion   = "ingestion"
	tickDeepScan    = "deep_scan"
	tickCorrelation = "correlation"
)

// dedupSize bounds the threats-already-handled cache. Old entries fall
// out once the cache is full, which at worst re-opens an incident for a
// long-running attack.
const dedupSize = 4096

// CorrelationRuleSource supplies the active correlation rules.
// rules.CorrelationStore satisfies this.
type CorrelationRuleSource interface {
	List() []models.CorrelationRule
}

// Responder runs automated response for a threat. response.Engine
// satisfies this.
type Responder interface {
	Execute(ctx context.Context, threat *models.ThreatIntelligence, incident *models.SecurityIncident) *models.AutomatedResponseResult
}

// AlertSink delivers alerts. alerting.Dispatcher satisfies this.
type AlertSink interface {
	Dispatch(ctx context.Context, alert *models.Alert) error
}

// Monitor owns the three detection loops and their shared state.
type Monitor struct {
	mu    sync.RWMutex
	state models.MonitorState
	cfg   models.MonitoringConfig
	loops map[string]*loop

	cursor int64 // highest audit event id already ingested

	events     repository.EventSource
	incidents  repository.IncidentStore
	classifier *classifier.Classifier
	correlator *correlation.Engine
	rules      CorrelationRuleSource
	responder  Responder
	alerts     AlertSink
	throttle   Throttle

	dedup  *lru.Cache[string, struct{}]
	stats  *models.MonitoringStats
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the monitor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// WithClock overrides the monitor clock.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// New builds a stopped monitor.
func New(
	cfg models.MonitoringConfig,
	events repository.EventSource,
	incidents repository.IncidentStore,
	cls *classifier.Classifier,
	correlator *correlation.Engine,
	rules CorrelationRuleSource,
	responder Responder,
	alerts AlertSink,
	throttle Throttle,
	opts ...Option,
) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitoring config: %w", err)
	}
	dedup, err := lru.New[string, struct{}](dedupSize)
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}
	m := &Monitor{
		state:      models.MonitorStopped,
		cfg:        cfg,
		loops:      make(map[string]*loop),
		events:     events,
		incidents:  incidents,
		classifier: cls,
		correlator: correlator,
		rules:      rules,
		responder:  responder,
		alerts:     alerts,
		throttle:   throttle,
		dedup:      dedup,
		stats:      &models.MonitoringStats{},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State returns the current lifecycle state.
func (m *Monitor) State() models.MonitorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Config returns a copy of the active configuration.
func (m *Monitor) Config() models.MonitoringConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Stats returns a snapshot of the pipeline counters.
func (m *Monitor) Stats() models.MonitoringStats {
	return m.stats.Snapshot()
}

// Start transitions stopped -> starting -> running and launches the
// three tick loops. A failure during starting leaves the monitor in the
// error state; a later Start may retry from there.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != models.MonitorStopped && m.state != models.MonitorError {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: state is %s", ErrAlreadyRunning, state)
	}
	m.state = models.MonitorStarting

	if err := m.cfg.Validate(); err != nil {
		m.state = models.MonitorError
		m.mu.Unlock()
		return fmt.Errorf("invalid monitoring config: %w", err)
	}

	// Prime the cursor so a restart does not replay the whole table.
	if m.cursor == 0 {
		recent, err := m.events.ReadRecent(ctx, m.cfg.CorrelationWindow, m.cfg.MaxEventsPerBatch)
		if err != nil {
			m.state = models.MonitorError
			m.mu.Unlock()
			return fmt.Errorf("prime ingestion cursor: %w", err)
		}
		for i := range recent {
			if recent[i].ID > m.cursor {
				m.cursor = recent[i].ID
			}
		}
	}

	m.startLoopLocked(tickIngestion, m.cfg.IngestionInterval, m.ingestionTick)
	m.startLoopLocked(tickDeepScan, m.cfg.DeepScanInterval, m.deepScanTick)
	m.startLoopLocked(tickCorrelation, m.cfg.CorrelationInterval, m.correlationTick)

	m.state = models.MonitorRunning
	m.stats.Update(func(s *models.MonitoringStats) { s.StartedAt = m.now() })
	m.mu.Unlock()

	m.logger.Info("monitor started",
		logging.Component("monitor"),
		slog.Duration("ingestion_interval", m.cfg.IngestionInterval),
		slog.Duration("deep_scan_interval", m.cfg.DeepScanInterval),
		slog.Duration("correlation_interval", m.cfg.CorrelationInterval),
		logging.Cursor(m.cursor))
	return nil
}

// Stop transitions running -> stopping -> stopped. It waits for
// in-flight ticks up to the configured grace period; stragglers are
// abandoned to their tick timeout.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if m.state != models.MonitorRunning {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: state is %s", ErrNotRunning, state)
	}
	m.state = models.MonitorStopping
	loops := make([]*loop, 0, len(m.loops))
	for _, l := range m.loops {
		loops = append(loops, l)
	}
	m.loops = make(map[string]*loop)
	grace := m.cfg.StopGracePeriod
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, l := range loops {
			l.stopAndWait()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		m.logger.Warn("stop grace period elapsed with ticks still in flight",
			logging.Component("monitor"))
	}

	m.mu.Lock()
	m.state = models.MonitorStopped
	m.mu.Unlock()
	m.logger.Info("monitor stopped", logging.Component("monitor"))
	return nil
}

// UpdateConfig swaps the active configuration. Loops whose interval
// changed are restarted; everything else picks up the new values on the
// next tick.
func (m *Monitor) UpdateConfig(cfg models.MonitoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid monitoring config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.cfg
	m.cfg = cfg

	if m.state != models.MonitorRunning {
		return nil
	}
	if cfg.IngestionInterval != old.IngestionInterval {
		m.restartLoopLocked(tickIngestion, cfg.IngestionInterval, m.ingestionTick)
	}
	if cfg.DeepScanInterval != old.DeepScanInterval {
		m.restartLoopLocked(tickDeepScan, cfg.DeepScanInterval, m.deepScanTick)
	}
	if cfg.CorrelationInterval != old.CorrelationInterval {
		m.restartLoopLocked(tickCorrelation, cfg.CorrelationInterval, m.correlationTick)
	}
	return nil
}

// ForceCheck runs all three passes synchronously once, regardless of
// the ticker schedule. It works in any lifecycle state so operators can
// scan on demand while the monitor is stopped.
func (m *Monitor) ForceCheck(ctx context.Context) error {
	if err := m.ingestionTick(ctx); err != nil {
		return fmt.Errorf("ingestion pass: %w", err)
	}
	if err := m.deepScanTick(ctx); err != nil {
		return fmt.Errorf("deep scan pass: %w", err)
	}
	if err := m.correlationTick(ctx); err != nil {
		return fmt.Errorf("correlation pass: %w", err)
	}
	return nil
}

// loop is one ticker-driven goroutine. The inFlight guard skips a tick
// when the previous one is still executing.
type loop struct {
	name     string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func (l *loop) stopAndWait() {
	close(l.stop)
	<-l.done
}

func (m *Monitor) startLoopLocked(name string, interval time.Duration, tick func(context.Context) error) {
	l := &loop{
		name:     name,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	m.loops[name] = l
	go m.runLoop(l, tick)
}

func (m *Monitor) restartLoopLocked(name string, interval time.Duration, tick func(context.Context) error) {
	if l, ok := m.loops[name]; ok {
		go l.stopAndWait()
	}
	m.startLoopLocked(name, interval, tick)
}

func (m *Monitor) runLoop(l *loop, tick func(context.Context) error) {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// Ticks run synchronously in the loop goroutine, so a slow tick can
	// never overlap the next one; the ticker drops any intervals missed
	// while it ran.
	for {
		select {
		case <-ticker.C:
			m.runTick(l.name, tick)
		case <-l.stop:
			return
		}
	}
}

// runTick executes one tick with a deadline and converts errors and
// panics into counters. One bad tick never takes the loop down.
func (m *Monitor) runTick(name string, tick func(context.Context) error) {
	cfg := m.Config()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.TickTimeout)
	defer cancel()

	started := m.now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("tick panic: %v", r)
			}
		}()
		return tick(ctx)
	}()
	tickDuration.WithLabelValues(name).Observe(m.now().Sub(started).Seconds())

	if err != nil {
		tickErrors.WithLabelValues(name).Inc()
		m.stats.Update(func(s *models.MonitoringStats) { s.TickErrors++ })
		m.logger.Error("tick failed",
			logging.Component("monitor"),
			logging.Tick(name),
			logging.Error(err))
	}
}
