package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/spec-kit/enrollment-lookup/internal/domain"
	apperrors "github.com/spec-kit/enrollment-lookup/pkg/util"
)

// CourseRepository reads active courses.
type CourseRepository interface {
	ListByStrand(ctx context.Context, strandID int64) ([]domain.Course, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]domain.Course, error)
	// ListByDepartmentMatch joins courses to departments whose name or code
	// equals the given needles after trimming and lower-casing.
	ListByDepartmentMatch(ctx context.Context, name, code string) ([]domain.Course, error)
}

type courseRepository struct {
	base
}

func (r *courseRepository) ListByStrand(ctx context.Context, strandID int64) ([]domain.Course, error) {
	q := r.sb.Select("id", "name", "COALESCE(code, '') AS code").
		From("courses").
		Where(activeOnly("is_active")).
		Where(squirrel.Eq{"strand_id": strandID}).
		OrderBy("name")

	courses, err := r.list(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list courses by strand: %w", err)
	}
	return courses, nil
}

func (r *courseRepository) ListByDepartment(ctx context.Context, departmentID int64) ([]domain.Course, error) {
	q := r.sb.Select("id", "name", "COALESCE(code, '') AS code").
		From("courses").
		Where(activeOnly("is_active")).
		Where(squirrel.Eq{"department_id": departmentID}).
		OrderBy("name")

	courses, err := r.list(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list courses by department: %w", err)
	}
	return courses, nil
}

// ListByDepartmentMatch joins through every departments layout in
// departmentSchemas and returns the rows of the first one that finds any.
// Failing variants are skipped; the last error is returned only when no
// variant executed successfully.
func (r *courseRepository) ListByDepartmentMatch(ctx context.Context, name, code string) ([]domain.Course, error) {
	var (
		lastErr  error
		executed bool
	)
	for i, cols := range departmentSchemas {
		courses, err := r.listByMatch(ctx, cols, name, code)
		if err != nil {
			if apperrors.IsUnavailable(err) {
				return nil, fmt.Errorf("list courses by department name: %w", err)
			}
			lastErr = err
			if i < len(departmentSchemas)-1 {
				r.variantFailed("departments", cols.String(), err)
			}
			continue
		}
		executed = true
		if len(courses) > 0 {
			return courses, nil
		}
	}
	if !executed && lastErr != nil {
		return nil, fmt.Errorf("list courses by department name: %w", lastErr)
	}
	return []domain.Course{}, nil
}

func (r *courseRepository) listByMatch(ctx context.Context, cols departmentColumns, name, code string) ([]domain.Course, error) {
	q := r.sb.Select("c.id", "c.name", "COALESCE(c.code, '') AS code").
		From("courses c").
		Join(fmt.Sprintf("departments d ON d.%s = c.department_id", cols.id)).
		Where(activeOnly("c.is_active")).
		Where(squirrel.Or{
			squirrel.Expr(fmt.Sprintf("LOWER(TRIM(d.%s)) = ?", cols.name), name),
			squirrel.Expr("LOWER(TRIM(d.code)) = ?", code),
		}).
		OrderBy("c.name")

	return r.list(ctx, q)
}

func (r *courseRepository) list(ctx context.Context, q squirrel.Sqlizer) ([]domain.Course, error) {
	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Course, 0)
	for rows.Next() {
		course := domain.Course{IsActive: true}
		if err := rows.Scan(&course.ID, &course.Name, &course.Code); err != nil {
			return nil, err
		}
		result = append(result, course)
	}
	return result, rows.Err()
}
