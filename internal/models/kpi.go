package models

import (
	"time"
)

// KPICategory groups indicators by business area.
type KPICategory string

const (
	CategoryFinancial   KPICategory = "financial"
	CategoryOperational KPICategory = "operational"
	CategoryCustomer    KPICategory = "customer"
	CategoryMarketing   KPICategory = "marketing"
	CategoryQuality     KPICategory = "quality"
)

// KPIUnit describes how a KPI value should be interpreted and displayed.
type KPIUnit string

const (
	UnitNumber     KPIUnit = "number"
	UnitPercentage KPIUnit = "percentage"
	UnitCurrency   KPIUnit = "currency"
	UnitDuration   KPIUnit = "duration"
)

// Frequency controls how often a KPI is collected.
type Frequency string

const (
	FrequencyRealtime Frequency = "realtime"
	FrequencyHourly   Frequency = "hourly"
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Thresholds holds the four-tier threshold set for a KPI. Warning and
// critical are floors: a value at or below the tier breaches it. Target and
// stretch are goals the value must reach.
type Thresholds struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
	Target   float64 `json:"target"`
	Stretch  float64 `json:"stretch"`
}

// KPIDefinition describes one tracked indicator. Definitions are immutable
// after registration; changing one requires redeploying the definition table.
type KPIDefinition struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Category   KPICategory `json:"category"`
	Unit       KPIUnit     `json:"unit"`
	Frequency  Frequency   `json:"frequency"`
	Thresholds Thresholds  `json:"thresholds"`
	Active     bool        `json:"active"`
}

// KPIDataPoint is a single recorded measurement. Data points are append-only;
// this subsystem never updates or deletes them.
type KPIDataPoint struct {
	ID         int64             `json:"id,omitempty"`
	KPIID      string            `json:"kpi_id"`
	Value      float64           `json:"value"`
	MeasuredAt time.Time         `json:"measured_at"`
	Dimensions []string          `json:"dimensions,omitempty"` // at most three tags
	Metadata   map[string]string `json:"metadata,omitempty"`
}
