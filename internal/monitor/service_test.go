package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi-monitor/internal/logging"
	"kpi-monitor/internal/models"
	"kpi-monitor/internal/registry"
)

type fakeStore struct {
	mu        sync.Mutex
	points    []models.KPIDataPoint
	targets   []float64
	alerts    []models.KPIAlert
	resolved  map[uuid.UUID]bool
	reports   []models.KPIReport
	history   map[string][]float64
	lastStart time.Time
	lastEnd   time.Time

	resolveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		resolved: make(map[uuid.UUID]bool),
		history:  make(map[string][]float64),
	}
}

func (f *fakeStore) InsertDataPoint(_ context.Context, p models.KPIDataPoint, target float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
	f.targets = append(f.targets, target)
	return nil
}

// DataPointsBetween serves whatever InsertDataPoint stored, applying the same
// inclusive window and newest-first ordering as the real store.
func (f *fakeStore) DataPointsBetween(_ context.Context, kpiID string, start, end time.Time) ([]models.KPIDataPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastStart, f.lastEnd = start, end
	var out []models.KPIDataPoint
	for _, p := range f.points {
		if p.KPIID == kpiID && !p.MeasuredAt.Before(start) && !p.MeasuredAt.After(end) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeasuredAt.After(out[j].MeasuredAt) })
	return out, nil
}

func (f *fakeStore) RecentValues(_ context.Context, kpiID string, _ time.Time, _ int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[kpiID], nil
}

func (f *fakeStore) InsertAlert(_ context.Context, a models.KPIAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeStore) MarkAlertResolved(_ context.Context, id uuid.UUID, _, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolveErr != nil {
		return f.resolveErr
	}
	for _, a := range f.alerts {
		if a.ID == id && !f.resolved[id] {
			f.resolved[id] = true
			return nil
		}
	}
	return &models.NotFoundError{Resource: "alert", ID: id.String()}
}

func (f *fakeStore) OpenAlerts(_ context.Context) ([]models.KPIAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var open []models.KPIAlert
	for _, a := range f.alerts {
		if !f.resolved[a.ID] {
			open = append(open, a)
		}
	}
	return open, nil
}

func (f *fakeStore) CountAlertsBetween(_ context.Context, start, end time.Time) (map[models.Severity]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[models.Severity]int)
	for _, a := range f.alerts {
		if !a.CreatedAt.Before(start) && !a.CreatedAt.After(end) {
			counts[a.Severity]++
		}
	}
	return counts, nil
}

func (f *fakeStore) InsertReport(_ context.Context, r models.KPIReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
	return nil
}

func (f *fakeStore) storedAlerts() []models.KPIAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.KPIAlert, len(f.alerts))
	copy(out, f.alerts)
	return out
}

type fakeTimer struct {
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return !t.fired
}

// fakeClock drives Now and AfterFunc manually.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.deadline.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []models.KPIAlert
	err  error
}

func (f *fakeChannel) Name() string { return "fake" }

func (f *fakeChannel) Send(_ context.Context, alert models.KPIAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, alert)
	return nil
}

func (f *fakeChannel) sentAlerts() []models.KPIAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.KPIAlert, len(f.sent))
	copy(out, f.sent)
	return out
}

func newTestService(store *fakeStore, clock *fakeClock, ch *fakeChannel) *Service {
	return New(registry.New(), store, logging.Discard(), Options{
		EscalationDelay: 30 * time.Minute,
		Clock:           clock,
		Channels:        []Channel{ch},
	})
}

func TestTickIntervalClampedToMinute(t *testing.T) {
	svc := New(registry.New(), newFakeStore(), logging.Discard(), Options{
		TickInterval: time.Second,
		Clock:        newFakeClock(),
	})
	assert.Equal(t, time.Minute, svc.opts.TickInterval)

	svc = New(registry.New(), newFakeStore(), logging.Discard(), Options{
		TickInterval: 5 * time.Minute,
		Clock:        newFakeClock(),
	})
	assert.Equal(t, 5*time.Minute, svc.opts.TickInterval)
}

func TestRecordValuePersistsAndNotifies(t *testing.T) {
	store, clock, ch := newFakeStore(), newFakeClock(), &fakeChannel{}
	svc := newTestService(store, clock, ch)

	err := svc.RecordValue(context.Background(), "monthly_revenue", 1800, []string{"downtown"}, nil)
	require.NoError(t, err)

	require.Len(t, store.points, 1)
	assert.Equal(t, 1800.0, store.points[0].Value)
	assert.Equal(t, 3000.0, store.targets[0], "target snapshot taken at record time")

	alerts := store.storedAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityMedium, alerts[0].Severity)

	require.Len(t, ch.sentAlerts(), 1)
	assert.Len(t, svc.ActiveAlerts(), 1)
}

func TestRecordValueUnknownKPI(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeClock(), &fakeChannel{})

	err := svc.RecordValue(context.Background(), "no_such_kpi", 100, nil, nil)
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))
}

func TestRecordValueTruncatesDimensions(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeClock(), &fakeChannel{})

	dims := []string{"downtown", "hair", "weekday", "extra", "more"}
	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 2500, dims, nil))

	require.Len(t, store.points, 1)
	assert.Equal(t, []string{"downtown", "hair", "weekday"}, store.points[0].Dimensions)
}

func TestChannelFailureDoesNotBlockRecording(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeClock(), &fakeChannel{err: errors.New("smtp down")})

	err := svc.RecordValue(context.Background(), "monthly_revenue", 1200, nil, nil)
	require.NoError(t, err)
	assert.Len(t, store.storedAlerts(), 1)
	assert.Len(t, svc.ActiveAlerts(), 1)
}

func TestEscalationFiresWhenUnresolved(t *testing.T) {
	store, clock, ch := newFakeStore(), newFakeClock(), &fakeChannel{}
	svc := newTestService(store, clock, ch)

	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 1200, nil, nil))
	require.Len(t, store.storedAlerts(), 1)
	original := store.storedAlerts()[0]
	require.Equal(t, models.SeverityCritical, original.Severity)

	clock.advance(30 * time.Minute)

	alerts := store.storedAlerts()
	require.Len(t, alerts, 2)
	esc := alerts[1]
	assert.True(t, esc.Escalated)
	assert.Equal(t, models.SeverityCritical, esc.Severity)
	assert.Equal(t, "ESCALATED: "+original.Message, esc.Message)
	assert.NotEqual(t, original.ID, esc.ID)
	assert.Len(t, ch.sentAlerts(), 2)

	// Escalation is one-shot.
	clock.advance(time.Hour)
	assert.Len(t, store.storedAlerts(), 2)
}

func TestEscalationSkippedWhenResolved(t *testing.T) {
	store, clock, ch := newFakeStore(), newFakeClock(), &fakeChannel{}
	svc := newTestService(store, clock, ch)

	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 1200, nil, nil))
	id := store.storedAlerts()[0].ID

	clock.advance(10 * time.Minute)
	require.NoError(t, svc.ResolveAlert(context.Background(), id, "ops@example.com", "seasonal dip"))

	clock.advance(time.Hour)
	assert.Len(t, store.storedAlerts(), 1, "resolved alerts never escalate")
	assert.Len(t, ch.sentAlerts(), 1)
	assert.Empty(t, svc.ActiveAlerts())
}

func TestMediumAlertsDoNotEscalate(t *testing.T) {
	store, clock, _ := newFakeStore(), newFakeClock(), &fakeChannel{}
	svc := newTestService(store, clock, &fakeChannel{})

	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 1800, nil, nil))
	require.Len(t, store.storedAlerts(), 1)

	clock.advance(2 * time.Hour)
	assert.Len(t, store.storedAlerts(), 1)
}

func TestResolveAlertUnknownAndDouble(t *testing.T) {
	store, clock := newFakeStore(), newFakeClock()
	svc := newTestService(store, clock, &fakeChannel{})

	var nf *models.NotFoundError
	err := svc.ResolveAlert(context.Background(), uuid.New(), "ops", "")
	require.True(t, errors.As(err, &nf))

	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 1200, nil, nil))
	id := store.storedAlerts()[0].ID

	require.NoError(t, svc.ResolveAlert(context.Background(), id, "ops", ""))
	err = svc.ResolveAlert(context.Background(), id, "someone-else", "")
	require.True(t, errors.As(err, &nf), "resolution is one-way")
}

func TestResolveFallsBackToMemoryWhenNeverPersisted(t *testing.T) {
	store, clock := newFakeStore(), newFakeClock()
	svc := newTestService(store, clock, &fakeChannel{})

	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 1200, nil, nil))
	id := store.storedAlerts()[0].ID

	store.resolveErr = &models.NotFoundError{Resource: "alert", ID: id.String()}
	require.NoError(t, svc.ResolveAlert(context.Background(), id, "ops", ""))
	assert.Empty(t, svc.ActiveAlerts())
}

func TestStopCancelsEscalationsAndRecording(t *testing.T) {
	store, clock := newFakeStore(), newFakeClock()
	svc := newTestService(store, clock, &fakeChannel{})

	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 1200, nil, nil))
	svc.Stop()

	clock.advance(time.Hour)
	assert.Len(t, store.storedAlerts(), 1, "stopped monitors do not escalate")

	err := svc.RecordValue(context.Background(), "monthly_revenue", 1200, nil, nil)
	assert.Error(t, err)
}

func TestActiveAlertsNewestFirst(t *testing.T) {
	store, clock := newFakeStore(), newFakeClock()
	svc := newTestService(store, clock, &fakeChannel{})

	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 1800, nil, nil))
	clock.advance(time.Minute)
	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 1200, nil, nil))

	alerts := svc.ActiveAlerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
	assert.False(t, alerts[0].CreatedAt.Before(alerts[1].CreatedAt))
}

func TestAlertHookReceivesEveryAlert(t *testing.T) {
	store, clock := newFakeStore(), newFakeClock()
	svc := newTestService(store, clock, &fakeChannel{})

	var mu sync.Mutex
	var hooked []models.KPIAlert
	svc.SetAlertHook(func(a models.KPIAlert) {
		mu.Lock()
		hooked = append(hooked, a)
		mu.Unlock()
	})

	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 1200, nil, nil))
	clock.advance(30 * time.Minute)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hooked, 2)
	assert.True(t, hooked[1].Escalated)
}

func TestRestoreOpenAlertsReschedulesEscalation(t *testing.T) {
	store, clock, ch := newFakeStore(), newFakeClock(), &fakeChannel{}
	first := newTestService(store, clock, ch)
	require.NoError(t, first.RecordValue(context.Background(), "monthly_revenue", 1200, nil, nil))
	first.Stop()

	// A fresh service against the same store picks the alert back up.
	second := newTestService(store, clock, ch)
	require.NoError(t, second.RestoreOpenAlerts(context.Background()))
	require.Len(t, second.ActiveAlerts(), 1)

	clock.advance(30 * time.Minute)
	alerts := store.storedAlerts()
	require.Len(t, alerts, 2)
	assert.True(t, alerts[1].Escalated)
}

func TestDataValidatesKPIAndWindow(t *testing.T) {
	store, clock := newFakeStore(), newFakeClock()
	svc := newTestService(store, clock, &fakeChannel{})

	_, err := svc.Data(context.Background(), "no_such_kpi", 7)
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))

	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 2500, nil, nil))
	points, err := svc.Data(context.Background(), "monthly_revenue", 0)
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Equal(t, clock.Now().AddDate(0, 0, -30), store.lastStart, "zero window defaults to 30 days")
	assert.Equal(t, clock.Now(), store.lastEnd)
}

func TestRecordValueRoundTripsThroughData(t *testing.T) {
	store, clock := newFakeStore(), newFakeClock()
	svc := newTestService(store, clock, &fakeChannel{})

	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 2500, []string{"downtown"}, nil))
	clock.advance(time.Hour)
	require.NoError(t, svc.RecordValue(context.Background(), "monthly_revenue", 2600, nil, nil))

	points, err := svc.Data(context.Background(), "monthly_revenue", 7)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 2600.0, points[0].Value, "newest first")
	assert.Equal(t, "monthly_revenue", points[0].KPIID)
	assert.Equal(t, 2500.0, points[1].Value)
	assert.Equal(t, []string{"downtown"}, points[1].Dimensions)
}
