package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/enrollment-lookup/internal/observability"
	"github.com/spec-kit/enrollment-lookup/internal/persistence"
	apperrors "github.com/spec-kit/enrollment-lookup/pkg/util"
)

// Repositories bundles the lookup repositories over one database handle.
type Repositories struct {
	Departments DepartmentRepository
	Strands     StrandRepository
	Courses     CourseRepository
}

// New builds all repositories. db may be nil; every query then reports
// the database as unavailable.
func New(db persistence.DBTX, logger *zap.Logger, metrics *observability.Metrics) *Repositories {
	b := base{
		db:      db,
		sb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger:  logger,
		metrics: metrics,
	}
	return &Repositories{
		Departments: &departmentRepository{base: b},
		Strands:     &strandRepository{base: b},
		Courses:     &courseRepository{base: b},
	}
}

type base struct {
	db      persistence.DBTX
	sb      squirrel.StatementBuilderType
	logger  *zap.Logger
	metrics *observability.Metrics
}

func (b *base) query(ctx context.Context, q squirrel.Sqlizer) (pgx.Rows, error) {
	if b.db == nil {
		return nil, apperrors.ErrDatabaseUnavailable
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return b.db.Query(ctx, sql, args...)
}

// activeOnly filters on the is_active flag. The cast accepts both BOOLEAN and
// integer flag columns.
func activeOnly(column string) squirrel.Sqlizer {
	return squirrel.Expr(column + "::INT = 1")
}

// variantFailed records that a schema variant errored and the next will be tried.
func (b *base) variantFailed(table, variant string, err error) {
	b.logger.Debug("schema variant failed; trying next",
		zap.String("table", table),
		zap.String("variant", variant),
		zap.Error(err),
	)
	b.metrics.RecordSchemaFallback(table)
}
