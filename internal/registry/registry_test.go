package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi-monitor/internal/models"
)

func TestDefinitionLookup(t *testing.T) {
	r := New()

	def, err := r.Definition("monthly_revenue")
	require.NoError(t, err)
	assert.Equal(t, "Monthly Revenue", def.Name)
	assert.Equal(t, models.CategoryFinancial, def.Category)
	assert.Equal(t, models.FrequencyDaily, def.Frequency)
}

func TestDefinitionUnknownID(t *testing.T) {
	r := New()

	_, err := r.Definition("no_such_kpi")
	require.Error(t, err)

	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "kpi", nf.Resource)
	assert.Equal(t, "no_such_kpi", nf.ID)
}

func TestActiveDefinitionsExcludesInactive(t *testing.T) {
	r := New()

	for _, def := range r.ActiveDefinitions() {
		assert.True(t, def.Active, "inactive KPI %s returned as active", def.ID)
		assert.NotEqual(t, "gift_card_sales", def.ID)
	}
	assert.Len(t, r.ActiveDefinitions(), len(r.Definitions())-1)
}

func TestThresholdOrdering(t *testing.T) {
	for _, def := range New().Definitions() {
		th := def.Thresholds
		assert.Less(t, th.Critical, th.Warning, "%s: critical must sit below warning", def.ID)
		assert.Less(t, th.Warning, th.Target, "%s: warning must sit below target", def.ID)
		assert.Less(t, th.Target, th.Stretch, "%s: target must sit below stretch", def.ID)
	}
}

func TestDefinitionsReturnsCopy(t *testing.T) {
	r := New()

	defs := r.Definitions()
	defs[0].Name = "mutated"

	fresh, err := r.Definition(defs[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", fresh.Name)
}
