package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/enrollment-lookup/internal/domain"
	apperrors "github.com/spec-kit/enrollment-lookup/pkg/util"
)

// DepartmentRepository reads departments.
type DepartmentRepository interface {
	ListActive(ctx context.Context) ([]domain.Department, error)
}

// departmentColumns names the key/name columns of one departments schema.
type departmentColumns struct {
	id   string
	name string
}

func (c departmentColumns) String() string {
	return c.id + "/" + c.name
}

// departmentSchemas lists the known departments layouts, newest first.
var departmentSchemas = []departmentColumns{
	{id: "department_id", name: "department_name"},
	{id: "department_id", name: "name"},
	{id: "id", name: "name"},
}

type departmentRepository struct {
	base
}

// ListActive returns active departments ordered by name, using the first
// schema variant that executes.
func (r *departmentRepository) ListActive(ctx context.Context) ([]domain.Department, error) {
	var lastErr error
	for i, cols := range departmentSchemas {
		depts, err := r.listActive(ctx, cols)
		if err == nil {
			return depts, nil
		}
		if apperrors.IsUnavailable(err) {
			return nil, fmt.Errorf("list departments: %w", err)
		}
		lastErr = err
		if i < len(departmentSchemas)-1 {
			r.variantFailed("departments", cols.String(), err)
		}
	}
	return nil, fmt.Errorf("list departments: %w", lastErr)
}

func (r *departmentRepository) listActive(ctx context.Context, cols departmentColumns) ([]domain.Department, error) {
	q := r.sb.Select(
		cols.id+" AS id",
		cols.name+" AS name",
		"COALESCE(code, '') AS code",
	).
		From("departments").
		Where(activeOnly("is_active")).
		OrderBy(cols.name)

	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Department, 0)
	for rows.Next() {
		dept := domain.Department{IsActive: true}
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.Code); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
