package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/spec-kit/enrollment-lookup/internal/domain"
	apperrors "github.com/spec-kit/enrollment-lookup/pkg/util"
)

// StrandRepository reads strands.
type StrandRepository interface {
	List(ctx context.Context) ([]domain.Strand, error)
}

type strandRepository struct {
	base
}

// List returns every strand ordered by name. Schemas keyed by plain id have
// no department link, so DepartmentID stays nil for them.
func (r *strandRepository) List(ctx context.Context) ([]domain.Strand, error) {
	current := r.sb.Select("strand_id AS id", "strand", "department_id").
		From("strands").
		OrderBy("strand")

	strands, err := r.list(ctx, current)
	if err == nil {
		return strands, nil
	}
	if apperrors.IsUnavailable(err) {
		return nil, fmt.Errorf("list strands: %w", err)
	}
	r.variantFailed("strands", "strand_id", err)

	legacy := r.sb.Select("id", "strand", "NULL::BIGINT AS department_id").
		From("strands").
		OrderBy("strand")

	strands, err = r.list(ctx, legacy)
	if err != nil {
		return nil, fmt.Errorf("list strands: %w", err)
	}
	return strands, nil
}

func (r *strandRepository) list(ctx context.Context, q squirrel.Sqlizer) ([]domain.Strand, error) {
	rows, err := r.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Strand, 0)
	for rows.Next() {
		var (
			strand domain.Strand
			deptID pgtype.Int8
		)
		if err := rows.Scan(&strand.ID, &strand.Name, &deptID); err != nil {
			return nil, err
		}
		if deptID.Valid {
			id := deptID.Int64
			strand.DepartmentID = &id
		}
		result = append(result, strand)
	}
	return result, rows.Err()
}
