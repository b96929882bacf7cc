package monitor

import (
	"context"
	"hash/fnv"
	"time"

	"kpi-monitor/internal/models"
)

// shouldCollect reports whether a KPI is due at now, given its configured
// frequency. Pure function of frequency and time: realtime fires every tick,
// hourly at minute zero, daily at 06:00, weekly Monday 06:00, monthly on the
// first at 06:00. Ticked minute-by-minute, each window fires at most once.
func shouldCollect(def models.KPIDefinition, now time.Time) bool {
	switch def.Frequency {
	case models.FrequencyRealtime:
		return true
	case models.FrequencyHourly:
		return now.Minute() == 0
	case models.FrequencyDaily:
		return now.Hour() == 6 && now.Minute() == 0
	case models.FrequencyWeekly:
		return now.Weekday() == time.Monday && now.Hour() == 6 && now.Minute() == 0
	case models.FrequencyMonthly:
		return now.Day() == 1 && now.Hour() == 6 && now.Minute() == 0
	default:
		return false
	}
}

// standInSource produces deterministic placeholder values spread across the
// warning-stretch band so the loop is exercisable end to end without the
// owning data sources.
//
// TODO: replace with real queries against the bookings database and the
// marketing platform once their read replicas are reachable from this
// service.
type standInSource struct{}

func (standInSource) Value(_ context.Context, def models.KPIDefinition, now time.Time) (float64, error) {
	h := fnv.New32a()
	h.Write([]byte(def.ID))
	h.Write([]byte(now.Truncate(time.Hour).Format(time.RFC3339)))
	frac := float64(h.Sum32()%1000) / 999.0

	lo, hi := def.Thresholds.Warning, def.Thresholds.Stretch
	if hi <= lo {
		return def.Thresholds.Target, nil
	}
	return lo + frac*(hi-lo), nil
}
