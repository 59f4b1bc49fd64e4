package entitlement_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func dayPtr(s string) *time.Time {
	d := day(s)
	return &d
}

func TestCurrentAssignment_MasRecienteVigente(t *testing.T) {
	history := []entity.PlanAssignment{
		{ID: "new", Status: entity.AssignmentActive, StartsOn: day("2026-06-01")},
		{ID: "old", Status: entity.AssignmentActive, StartsOn: day("2025-01-01")},
	}
	cur := entitlement.CurrentAssignment(history, day("2026-10-19"))
	require.NotNil(t, cur)
	assert.Equal(t, "new", cur.ID)
}

func TestCurrentAssignment_IgnoraEstadosSinAcceso(t *testing.T) {
	history := []entity.PlanAssignment{
		{ID: "canceled", Status: entity.AssignmentCanceled, StartsOn: day("2026-06-01")},
		{ID: "expired", Status: entity.AssignmentExpired, StartsOn: day("2026-05-01")},
		{ID: "pastdue", Status: entity.AssignmentPastDue, StartsOn: day("2026-01-01")},
	}
	cur := entitlement.CurrentAssignment(history, day("2026-10-19"))
	require.NotNil(t, cur)
	assert.Equal(t, "pastdue", cur.ID)
}

func TestCurrentAssignment_VentanaDeFechas(t *testing.T) {
	history := []entity.PlanAssignment{
		{ID: "futuro", Status: entity.AssignmentTrial, StartsOn: day("2026-11-01")},
		{ID: "vencido", Status: entity.AssignmentActive, StartsOn: day("2026-01-01"), EndsOn: dayPtr("2026-10-18")},
	}
	assert.Nil(t, entitlement.CurrentAssignment(history, day("2026-10-19")))

	// EndsOn es inclusivo.
	cur := entitlement.CurrentAssignment(history, day("2026-10-18"))
	require.NotNil(t, cur)
	assert.Equal(t, "vencido", cur.ID)
}

func TestCurrentAssignment_HistorialVacio(t *testing.T) {
	assert.Nil(t, entitlement.CurrentAssignment(nil, time.Now()))
}

func TestCurrentAssignment_EmpateDesempataPorCreacion(t *testing.T) {
	history := []entity.PlanAssignment{
		{ID: "a", Status: entity.AssignmentActive, StartsOn: day("2026-01-01"), CreatedAt: day("2026-01-01")},
		{ID: "b", Status: entity.AssignmentActive, StartsOn: day("2026-01-01"), CreatedAt: day("2026-01-02")},
	}
	cur := entitlement.CurrentAssignment(history, day("2026-02-01"))
	require.NotNil(t, cur)
	assert.Equal(t, "b", cur.ID)
}
