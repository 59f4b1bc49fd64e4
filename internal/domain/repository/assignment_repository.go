package repository

import (
	"context"
	"time"

	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// AssignmentRepository puerto de persistencia del historial de asignaciones de plan (solo inserción).
type AssignmentRepository interface {
	// ListByEnterprise devuelve el historial ordenado del más reciente al más antiguo.
	ListByEnterprise(ctx context.Context, enterpriseID string) ([]entity.PlanAssignment, error)
	// GetCurrent devuelve la asignación vigente en la fecha indicada o (nil, nil).
	GetCurrent(ctx context.Context, enterpriseID string, today time.Time) (*entity.PlanAssignment, error)
	Create(ctx context.Context, a *entity.PlanAssignment) error
}
