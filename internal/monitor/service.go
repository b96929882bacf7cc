// Package monitor implements the KPI monitoring loop: timer-driven value
// collection, threshold and anomaly evaluation, alert notification with
// escalation, and periodic report generation.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kpi-monitor/internal/logging"
	"kpi-monitor/internal/models"
	"kpi-monitor/internal/registry"
)

// Store is the persistence surface the loop depends on. *db.DB satisfies it.
type Store interface {
	InsertDataPoint(ctx context.Context, p models.KPIDataPoint, target float64) error
	DataPointsBetween(ctx context.Context, kpiID string, start, end time.Time) ([]models.KPIDataPoint, error)
	RecentValues(ctx context.Context, kpiID string, before time.Time, limit int) ([]float64, error)
	InsertAlert(ctx context.Context, a models.KPIAlert) error
	MarkAlertResolved(ctx context.Context, id uuid.UUID, resolvedBy, notes string, at time.Time) error
	OpenAlerts(ctx context.Context) ([]models.KPIAlert, error)
	CountAlertsBetween(ctx context.Context, start, end time.Time) (map[models.Severity]int, error)
	InsertReport(ctx context.Context, r models.KPIReport) error
}

// Channel delivers an alert to one notification target.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert models.KPIAlert) error
}

// ValueSource computes the current value of a KPI. This is the boundary to
// the owning data sources (bookings table, marketing platform, ...).
type ValueSource interface {
	Value(ctx context.Context, def models.KPIDefinition, now time.Time) (float64, error)
}

// Options tunes the monitoring loop. Zero values fall back to defaults in New.
type Options struct {
	TickInterval       time.Duration
	AnomalyEnabled     bool
	AnomalySensitivity float64
	AnomalyWindow      int
	EscalationDelay    time.Duration
	ReportHour         int
	ReportMinute       int

	// Optional collaborators, defaulted in New.
	Clock    Clock
	Source   ValueSource
	Channels []Channel
}

// Service runs the monitoring loop and exposes the programmatic surface used
// by the API and the Kafka consumer.
type Service struct {
	registry *registry.Registry
	store    Store
	source   ValueSource
	eval     *evaluator
	notifier *notifier
	logger   *logging.Logger
	clock    Clock
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	active        map[uuid.UUID]models.KPIAlert
	escalations   map[uuid.UUID]Timer
	stopped       bool
	lastReportDay int

	alertHook func(models.KPIAlert)
}

// New constructs a Service around the given registry and store.
func New(reg *registry.Registry, store Store, logger *logging.Logger, opts Options) *Service {
	// shouldCollect gates on the minute; a sub-minute tick would re-fire
	// hourly and slower KPIs inside their matching minute.
	if opts.TickInterval < time.Minute {
		opts.TickInterval = time.Minute
	}
	if opts.AnomalyWindow == 0 {
		opts.AnomalyWindow = 20
	}
	if opts.EscalationDelay == 0 {
		opts.EscalationDelay = 30 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Source == nil {
		opts.Source = standInSource{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		registry: reg,
		store:    store,
		source:   opts.Source,
		eval: &evaluator{
			anomalyEnabled: opts.AnomalyEnabled,
			sensitivity:    opts.AnomalySensitivity,
		},
		notifier:    &notifier{channels: opts.Channels, logger: logger},
		logger:      logger,
		clock:       opts.Clock,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		active:      make(map[uuid.UUID]models.KPIAlert),
		escalations: make(map[uuid.UUID]Timer),
	}
}

// SetAlertHook registers a callback invoked with every newly raised alert
// (used by the WebSocket fanout). Must be called before Start.
func (s *Service) SetAlertHook(fn func(models.KPIAlert)) {
	s.alertHook = fn
}

// RestoreOpenAlerts reloads unresolved alerts from the store after a restart
// and re-arms escalation timers for the eligible ones. Restored timers run
// the full delay again; already-escalated alerts are not escalated twice.
func (s *Service) RestoreOpenAlerts(ctx context.Context) error {
	alerts, err := s.store.OpenAlerts(ctx)
	if err != nil {
		return &models.PersistenceError{Op: "load open alerts", Err: err}
	}

	s.mu.Lock()
	for _, a := range alerts {
		s.active[a.ID] = a
	}
	s.mu.Unlock()

	for _, a := range alerts {
		if !a.Escalated && (a.Severity == models.SeverityHigh || a.Severity == models.SeverityCritical) {
			s.scheduleEscalation(a.ID)
		}
	}
	s.logger.Infof("Restored %d open alerts", len(alerts))
	return nil
}

// Start launches the collection and report loops.
func (s *Service) Start() {
	s.wg.Add(2)
	go s.collectLoop()
	go s.reportLoop()
	s.logger.Infof("Monitoring started: %d active KPIs, tick %v",
		len(s.registry.ActiveDefinitions()), s.opts.TickInterval)
}

// Stop cancels both loops and all outstanding escalation timers. No further
// persistence is attempted after Stop returns.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for id, t := range s.escalations {
		t.Stop()
		delete(s.escalations, id)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Infof("Monitoring stopped")
}

func (s *Service) collectLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.collectTick(s.clock.Now())
		}
	}
}

func (s *Service) reportLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.reportTick(s.clock.Now())
		}
	}
}

// collectTick gathers every KPI due at now. Failures are isolated per KPI:
// one bad collection or write never aborts the rest of the batch.
func (s *Service) collectTick(now time.Time) {
	for _, def := range s.registry.ActiveDefinitions() {
		if !shouldCollect(def, now) {
			continue
		}
		value, err := s.source.Value(s.ctx, def, now)
		if err != nil {
			s.logger.Errorf("%v", &models.CollectionError{KPIID: def.ID, Err: err})
			continue
		}
		meta := map[string]string{"source": "collector"}
		if err := s.RecordValue(s.ctx, def.ID, value, nil, meta); err != nil {
			s.logger.Errorf("Record failed for KPI %s: %v", def.ID, err)
		}
	}
}

// RecordValue persists one measurement and synchronously evaluates it.
func (s *Service) RecordValue(ctx context.Context, kpiID string, value float64, dimensions []string, metadata map[string]string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("monitor is stopped")
	}
	s.mu.Unlock()

	def, err := s.registry.Definition(kpiID)
	if err != nil {
		return err
	}
	if len(dimensions) > 3 {
		dimensions = dimensions[:3]
	}
	point := models.KPIDataPoint{
		KPIID:      kpiID,
		Value:      value,
		MeasuredAt: s.clock.Now(),
		Dimensions: dimensions,
		Metadata:   metadata,
	}
	if err := s.store.InsertDataPoint(ctx, point, def.Thresholds.Target); err != nil {
		return &models.PersistenceError{Op: "insert data point", Err: err}
	}

	// Evaluation is causally ordered after this KPI's own record.
	var history []float64
	if s.eval.anomalyEnabled {
		history, err = s.store.RecentValues(ctx, kpiID, point.MeasuredAt, s.opts.AnomalyWindow)
		if err != nil {
			// Anomaly detection degrades to a skip; threshold checks still run.
			s.logger.Errorf("%v", &models.PersistenceError{Op: "fetch history", Err: err})
			history = nil
		}
	}
	for _, alert := range s.eval.Evaluate(def, point, history) {
		s.raiseAlert(ctx, alert)
	}
	return nil
}

// raiseAlert persists, caches, dispatches, and (for high/critical severity)
// schedules an escalation check for one alert. An alert is never both
// dropped and unreported: a failed persist is logged and the alert still
// notifies.
func (s *Service) raiseAlert(ctx context.Context, alert models.KPIAlert) {
	if err := s.store.InsertAlert(ctx, alert); err != nil {
		s.logger.Errorf("%v", &models.PersistenceError{Op: "insert alert", Err: err})
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.active[alert.ID] = alert
	s.mu.Unlock()

	s.notifier.Notify(ctx, alert)
	if s.alertHook != nil {
		s.alertHook(alert)
	}

	if alert.Severity == models.SeverityHigh || alert.Severity == models.SeverityCritical {
		s.scheduleEscalation(alert.ID)
	}
}

// scheduleEscalation arms a one-shot timer that re-checks the alert's
// resolution state when it fires, not when it is scheduled.
func (s *Service) scheduleEscalation(id uuid.UUID) {
	t := s.clock.AfterFunc(s.opts.EscalationDelay, func() { s.fireEscalation(id) })
	s.mu.Lock()
	s.escalations[id] = t
	s.mu.Unlock()
}

func (s *Service) fireEscalation(id uuid.UUID) {
	s.mu.Lock()
	delete(s.escalations, id)
	if s.stopped {
		s.mu.Unlock()
		return
	}
	alert, open := s.active[id]
	s.mu.Unlock()
	if !open || alert.Resolved {
		return
	}

	esc := alert
	esc.ID = uuid.New()
	esc.Escalated = true
	esc.Severity = alert.Severity.Escalate()
	esc.Message = "ESCALATED: " + alert.Message
	esc.CreatedAt = s.clock.Now()
	s.logger.Warnf("Alert %s for KPI %s unresolved after %v, escalating to %s",
		id, alert.KPIID, s.opts.EscalationDelay, esc.Severity)

	if err := s.store.InsertAlert(s.ctx, esc); err != nil {
		s.logger.Errorf("%v", &models.PersistenceError{Op: "insert escalated alert", Err: err})
	}
	s.mu.Lock()
	if !s.stopped {
		s.active[esc.ID] = esc
	}
	s.mu.Unlock()

	s.notifier.Notify(s.ctx, esc)
	if s.alertHook != nil {
		s.alertHook(esc)
	}
	// Escalation is one-shot: no further escalation is chained.
}

// ResolveAlert performs the one-way open -> resolved transition. Unknown or
// already-resolved ids fail with NotFoundError so a second resolver's
// identity is never silently dropped.
func (s *Service) ResolveAlert(ctx context.Context, id uuid.UUID, resolvedBy, notes string) error {
	s.mu.Lock()
	alert, open := s.active[id]
	s.mu.Unlock()
	if !open || alert.Resolved {
		return &models.NotFoundError{Resource: "alert", ID: id.String()}
	}

	now := s.clock.Now()
	if err := s.store.MarkAlertResolved(ctx, id, resolvedBy, notes, now); err != nil {
		if _, notFound := err.(*models.NotFoundError); !notFound {
			return &models.PersistenceError{Op: "resolve alert", Err: err}
		}
		// The alert failed to persist when raised; resolve the cached copy.
		s.logger.Warnf("Alert %s resolved in memory only: %v", id, err)
	}

	s.mu.Lock()
	delete(s.active, id)
	if t, ok := s.escalations[id]; ok {
		t.Stop()
		delete(s.escalations, id)
	}
	s.mu.Unlock()

	s.logger.Infof("Alert %s resolved by %s", id, resolvedBy)
	return nil
}

// ActiveAlerts returns the open alerts, newest first.
func (s *Service) ActiveAlerts() []models.KPIAlert {
	s.mu.Lock()
	alerts := make([]models.KPIAlert, 0, len(s.active))
	for _, a := range s.active {
		alerts = append(alerts, a)
	}
	s.mu.Unlock()

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts
}

// Data returns the recorded points for a KPI over the past daysBack days
// (default 30), newest first.
func (s *Service) Data(ctx context.Context, kpiID string, daysBack int) ([]models.KPIDataPoint, error) {
	if _, err := s.registry.Definition(kpiID); err != nil {
		return nil, err
	}
	if daysBack <= 0 {
		daysBack = 30
	}
	now := s.clock.Now()
	points, err := s.store.DataPointsBetween(ctx, kpiID, now.AddDate(0, 0, -daysBack), now)
	if err != nil {
		return nil, &models.PersistenceError{Op: "fetch data points", Err: err}
	}
	return points, nil
}

// Definitions exposes the registry to API consumers.
func (s *Service) Definitions() []models.KPIDefinition {
	return s.registry.Definitions()
}
