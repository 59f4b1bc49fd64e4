package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/entitlements-api/internal/domain"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
	"github.com/jhoicas/entitlements-api/internal/domain/repository"
)

var _ repository.AssignmentRepository = (*AssignmentRepo)(nil)

const assignmentColumns = `id, enterprise_id, plan_id, status, starts_on, ends_on, auto_renew, created_at`

// AssignmentRepo historial de asignaciones de plan sobre PostgreSQL. Solo inserción.
type AssignmentRepo struct {
	q Querier
}

// NewAssignmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAssignmentRepository(q Querier) *AssignmentRepo {
	return &AssignmentRepo{q: q}
}

// ListByEnterprise devuelve el historial del más reciente al más antiguo.
func (r *AssignmentRepo) ListByEnterprise(ctx context.Context, enterpriseID string) ([]entity.PlanAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM plan_assignments WHERE enterprise_id = $1
		ORDER BY starts_on DESC, created_at DESC`
	rows, err := r.q.Query(ctx, query, enterpriseID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var list []entity.PlanAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// GetCurrent aplica en SQL la misma regla que entitlement.CurrentAssignment.
func (r *AssignmentRepo) GetCurrent(ctx context.Context, enterpriseID string, today time.Time) (*entity.PlanAssignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM plan_assignments
		WHERE enterprise_id = $1
		  AND status IN ('TRIAL', 'ACTIVE', 'PAST_DUE')
		  AND starts_on <= $2
		  AND (ends_on IS NULL OR ends_on >= $2)
		ORDER BY starts_on DESC, created_at DESC
		LIMIT 1`
	a, err := scanAssignment(r.q.QueryRow(ctx, query, enterpriseID, entity.DateOf(today)))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get current assignment: %w", err)
	}
	return a, nil
}

// Create inserta una nueva asignación; nunca modifica las anteriores.
func (r *AssignmentRepo) Create(ctx context.Context, a *entity.PlanAssignment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	query := `INSERT INTO plan_assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var endsOn *time.Time
	if a.EndsOn != nil {
		d := entity.DateOf(*a.EndsOn)
		endsOn = &d
	}
	_, err := r.q.Exec(ctx, query,
		a.ID, a.EnterpriseID, a.PlanID, string(a.Status),
		entity.DateOf(a.StartsOn), endsOn, a.AutoRenew, a.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("create assignment: %w", domain.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("create assignment: %w", domain.ErrConflict)
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func scanAssignment(row pgx.Row) (*entity.PlanAssignment, error) {
	var a entity.PlanAssignment
	var status string
	if err := row.Scan(&a.ID, &a.EnterpriseID, &a.PlanID, &status, &a.StartsOn, &a.EndsOn, &a.AutoRenew, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Status = entity.AssignmentStatus(status)
	return &a, nil
}
