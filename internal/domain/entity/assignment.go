package entity

import "time"

// AssignmentStatus estado del ciclo de vida de una asignación de plan.
type AssignmentStatus string

const (
	AssignmentTrial    AssignmentStatus = "TRIAL"
	AssignmentActive   AssignmentStatus = "ACTIVE"
	AssignmentPastDue  AssignmentStatus = "PAST_DUE"
	AssignmentCanceled AssignmentStatus = "CANCELED"
	AssignmentExpired  AssignmentStatus = "EXPIRED"
)

// IsValid informa si el estado es uno de los valores del ciclo de vida.
func (s AssignmentStatus) IsValid() bool {
	switch s {
	case AssignmentTrial, AssignmentActive, AssignmentPastDue, AssignmentCanceled, AssignmentExpired:
		return true
	}
	return false
}

// GrantsAccess informa si el estado permite que la asignación sea la vigente.
func (s AssignmentStatus) GrantsAccess() bool {
	return s == AssignmentTrial || s == AssignmentActive || s == AssignmentPastDue
}

// PlanAssignment vincula una empresa (tenant) con un plan durante una ventana de fechas.
// Las asignaciones no se borran: una más reciente reemplaza a la anterior.
type PlanAssignment struct {
	ID           string
	EnterpriseID string
	PlanID       string
	Status       AssignmentStatus
	StartsOn     time.Time  // fecha (sin hora)
	EndsOn       *time.Time // nil = sin vencimiento; inclusivo
	AutoRenew    bool
	CreatedAt    time.Time
}

// Covers informa si la ventana [StartsOn, EndsOn] contiene el día indicado.
func (a *PlanAssignment) Covers(day time.Time) bool {
	d := DateOf(day)
	if d.Before(DateOf(a.StartsOn)) {
		return false
	}
	if a.EndsOn != nil && d.After(DateOf(*a.EndsOn)) {
		return false
	}
	return true
}

// DateOf trunca un instante a la fecha calendario en UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
