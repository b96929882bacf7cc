package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityEscalate(t *testing.T) {
	assert.Equal(t, SeverityMedium, SeverityLow.Escalate())
	assert.Equal(t, SeverityHigh, SeverityMedium.Escalate())
	assert.Equal(t, SeverityCritical, SeverityHigh.Escalate())
	assert.Equal(t, SeverityCritical, SeverityCritical.Escalate(), "critical caps the ladder")
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")

	var err error = &PersistenceError{Op: "insert alert", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert alert")

	err = &CollectionError{KPIID: "monthly_revenue", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "monthly_revenue")

	err = &NotFoundError{Resource: "kpi", ID: "monthly_revenue"}
	assert.Contains(t, err.Error(), "kpi")
	assert.Contains(t, err.Error(), "monthly_revenue")
}
