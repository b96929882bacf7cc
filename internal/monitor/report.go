package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"kpi-monitor/internal/models"
)

// DateRange overrides the period-derived window of a report.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// GenerateReport summarizes per-KPI performance and alert activity over the
// period. The returned report is immutable; the scheduled reporting path
// persists it, on-demand callers receive it directly.
func (s *Service) GenerateReport(ctx context.Context, period models.ReportPeriod, custom *DateRange) (models.KPIReport, error) {
	now := s.clock.Now()
	start, end := rangeFor(period, now)
	if custom != nil {
		start, end = custom.Start, custom.End
	}

	var perf []models.KPIPerformance
	for _, def := range s.registry.ActiveDefinitions() {
		points, err := s.store.DataPointsBetween(ctx, def.ID, start, end)
		if err != nil {
			s.logger.Errorf("%v", &models.PersistenceError{Op: "fetch report data", Err: err})
			continue
		}
		if len(points) == 0 {
			continue
		}

		// Points arrive newest first.
		current := points[0].Value
		p := models.KPIPerformance{
			KPIID:   def.ID,
			Name:    def.Name,
			Current: current,
			Target:  def.Thresholds.Target,
			Trend:   models.TrendStable,
		}
		if def.Thresholds.Target != 0 {
			p.Achievement = current / def.Thresholds.Target * 100
		}
		if len(points) > 1 {
			previous := points[1].Value
			p.Change = current - previous
			switch {
			case current > previous:
				p.Trend = models.TrendImproving
			case current < previous:
				p.Trend = models.TrendDeclining
			}
		}
		perf = append(perf, p)
	}

	counts, err := s.store.CountAlertsBetween(ctx, start, end)
	if err != nil {
		s.logger.Errorf("%v", &models.PersistenceError{Op: "count report alerts", Err: err})
		counts = map[models.Severity]int{}
	}

	summary := models.ReportSummary{
		TotalKPIs:   len(perf),
		AlertCounts: counts,
		KPIs:        perf,
	}
	var scoreSum float64
	for _, p := range perf {
		scoreSum += p.Achievement
		if p.Achievement >= 100 {
			summary.OnTarget++
		}
	}
	if len(perf) > 0 {
		summary.OverallScore = scoreSum / float64(len(perf))
	}
	summary.Insights = buildInsights(perf, counts)

	return models.KPIReport{
		ID:          uuid.New(),
		Period:      period,
		GeneratedAt: now,
		PeriodStart: start,
		PeriodEnd:   end,
		Summary:     summary,
	}, nil
}

// reportTick generates and persists the scheduled reports once per day at the
// configured time. Weekly and monthly reports piggyback on the daily slot.
func (s *Service) reportTick(now time.Time) {
	if now.Hour() != s.opts.ReportHour || now.Minute() != s.opts.ReportMinute {
		return
	}
	s.mu.Lock()
	if s.lastReportDay == now.YearDay() {
		s.mu.Unlock()
		return
	}
	s.lastReportDay = now.YearDay()
	s.mu.Unlock()

	periods := []models.ReportPeriod{models.PeriodDaily}
	if now.Weekday() == time.Monday {
		periods = append(periods, models.PeriodWeekly)
	}
	if now.Day() == 1 {
		periods = append(periods, models.PeriodMonthly)
	}

	for _, period := range periods {
		report, err := s.GenerateReport(s.ctx, period, nil)
		if err != nil {
			s.logger.Errorf("Scheduled %s report failed: %v", period, err)
			continue
		}
		if err := s.store.InsertReport(s.ctx, report); err != nil {
			s.logger.Errorf("%v", &models.PersistenceError{Op: "insert report", Err: err})
			continue
		}
		s.logger.Infof("Scheduled %s report %s generated: score %.1f, %d KPIs",
			period, report.ID, report.Summary.OverallScore, report.Summary.TotalKPIs)
	}
}

func rangeFor(period models.ReportPeriod, now time.Time) (time.Time, time.Time) {
	days := 1
	switch period {
	case models.PeriodWeekly:
		days = 7
	case models.PeriodMonthly:
		days = 30
	case models.PeriodQuarterly:
		days = 90
	}
	return now.AddDate(0, 0, -days), now
}

// buildInsights derives the qualitative observations: top achievers, lagging
// KPIs, alert volume, and the improving-vs-declining balance.
func buildInsights(perf []models.KPIPerformance, counts map[models.Severity]int) []models.Insight {
	var insights []models.Insight

	sorted := make([]models.KPIPerformance, len(perf))
	copy(sorted, perf)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Achievement > sorted[j].Achievement
	})

	achievers := 0
	for _, p := range sorted {
		if p.Achievement < 120 || achievers == 3 {
			break
		}
		achievers++
		insights = append(insights, models.Insight{
			Kind:     models.InsightAchievement,
			Priority: models.SeverityLow,
			Message:  fmt.Sprintf("%s is at %.1f%% of target", p.Name, p.Achievement),
		})
	}

	atRisk := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		if p.Achievement >= 80 || atRisk == 3 {
			break
		}
		atRisk++
		priority := models.SeverityMedium
		if p.Achievement < 50 {
			priority = models.SeverityHigh
		}
		insights = append(insights, models.Insight{
			Kind:     models.InsightRisk,
			Priority: priority,
			Message:  fmt.Sprintf("%s is at %.1f%% of target and needs attention", p.Name, p.Achievement),
		})
	}

	totalAlerts := 0
	for _, n := range counts {
		totalAlerts += n
	}
	if totalAlerts > 0 {
		priority := models.SeverityMedium
		if counts[models.SeverityCritical] > 0 {
			priority = models.SeverityHigh
		}
		insights = append(insights, models.Insight{
			Kind:     models.InsightAlerts,
			Priority: priority,
			Message:  fmt.Sprintf("%d alerts raised in this period (%d critical)", totalAlerts, counts[models.SeverityCritical]),
		})
	}

	improving, declining := 0, 0
	for _, p := range perf {
		switch p.Trend {
		case models.TrendImproving:
			improving++
		case models.TrendDeclining:
			declining++
		}
	}
	if len(perf) > 0 {
		insights = append(insights, models.Insight{
			Kind:     models.InsightTrend,
			Priority: models.SeverityLow,
			Message:  fmt.Sprintf("%d KPIs improving, %d declining", improving, declining),
		})
	}

	return insights
}
