// Package registry holds the closed set of KPI definitions. The table is
// compiled in; changing a KPI means redeploying it.
package registry

import (
	"kpi-monitor/internal/models"
)

// Registry exposes the active KPI definitions to the monitoring loop.
type Registry struct {
	defs []models.KPIDefinition
	byID map[string]models.KPIDefinition
}

// New builds a registry from the default definition table.
func New() *Registry {
	return newFrom(defaultDefinitions())
}

func newFrom(defs []models.KPIDefinition) *Registry {
	r := &Registry{defs: defs, byID: make(map[string]models.KPIDefinition, len(defs))}
	for _, d := range defs {
		r.byID[d.ID] = d
	}
	return r
}

// Definitions returns every registered definition, active or not.
func (r *Registry) Definitions() []models.KPIDefinition {
	out := make([]models.KPIDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// ActiveDefinitions returns only the definitions eligible for collection.
func (r *Registry) ActiveDefinitions() []models.KPIDefinition {
	var out []models.KPIDefinition
	for _, d := range r.defs {
		if d.Active {
			out = append(out, d)
		}
	}
	return out
}

// Definition looks up one KPI by id.
func (r *Registry) Definition(id string) (models.KPIDefinition, error) {
	d, ok := r.byID[id]
	if !ok {
		return models.KPIDefinition{}, &models.NotFoundError{Resource: "kpi", ID: id}
	}
	return d, nil
}

// defaultDefinitions is the deployed KPI table for the booking marketplace.
func defaultDefinitions() []models.KPIDefinition {
	return []models.KPIDefinition{
		{
			ID: "monthly_revenue", Name: "Monthly Revenue",
			Category: models.CategoryFinancial, Unit: models.UnitCurrency,
			Frequency:  models.FrequencyDaily,
			Thresholds: models.Thresholds{Warning: 2000, Critical: 1500, Target: 3000, Stretch: 5000},
			Active:     true,
		},
		{
			ID: "average_booking_value", Name: "Average Booking Value",
			Category: models.CategoryFinancial, Unit: models.UnitCurrency,
			Frequency:  models.FrequencyDaily,
			Thresholds: models.Thresholds{Warning: 45, Critical: 35, Target: 60, Stretch: 80},
			Active:     true,
		},
		{
			ID: "booking_conversion_rate", Name: "Booking Conversion Rate",
			Category: models.CategoryMarketing, Unit: models.UnitPercentage,
			Frequency:  models.FrequencyHourly,
			Thresholds: models.Thresholds{Warning: 40, Critical: 25, Target: 60, Stretch: 75},
			Active:     true,
		},
		{
			ID: "new_client_signups", Name: "New Client Signups",
			Category: models.CategoryMarketing, Unit: models.UnitNumber,
			Frequency:  models.FrequencyDaily,
			Thresholds: models.Thresholds{Warning: 10, Critical: 5, Target: 25, Stretch: 40},
			Active:     true,
		},
		{
			ID: "service_utilization", Name: "Service Utilization",
			Category: models.CategoryOperational, Unit: models.UnitPercentage,
			Frequency:  models.FrequencyHourly,
			Thresholds: models.Thresholds{Warning: 50, Critical: 35, Target: 70, Stretch: 85},
			Active:     true,
		},
		{
			ID: "customer_retention_rate", Name: "Customer Retention Rate",
			Category: models.CategoryCustomer, Unit: models.UnitPercentage,
			Frequency:  models.FrequencyWeekly,
			Thresholds: models.Thresholds{Warning: 60, Critical: 45, Target: 75, Stretch: 85},
			Active:     true,
		},
		{
			ID: "customer_satisfaction", Name: "Customer Satisfaction Score",
			Category: models.CategoryQuality, Unit: models.UnitNumber,
			Frequency:  models.FrequencyDaily,
			Thresholds: models.Thresholds{Warning: 4.0, Critical: 3.5, Target: 4.5, Stretch: 4.8},
			Active:     true,
		},
		{
			ID: "marketing_roi", Name: "Marketing ROI",
			Category: models.CategoryMarketing, Unit: models.UnitNumber,
			Frequency:  models.FrequencyMonthly,
			Thresholds: models.Thresholds{Warning: 1.5, Critical: 1.0, Target: 3.0, Stretch: 5.0},
			Active:     true,
		},
		{
			// Gift cards launch later this year; the KPI ships disabled.
			ID: "gift_card_sales", Name: "Gift Card Sales",
			Category: models.CategoryFinancial, Unit: models.UnitCurrency,
			Frequency:  models.FrequencyWeekly,
			Thresholds: models.Thresholds{Warning: 200, Critical: 100, Target: 500, Stretch: 1000},
			Active:     false,
		},
	}
}
