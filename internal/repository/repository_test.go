package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/enrollment-lookup/internal/observability"
	apperrors "github.com/spec-kit/enrollment-lookup/pkg/util"
)

func newMockRepos(t *testing.T) (*Repositories, pgxmock.PgxPoolIface, *observability.Metrics) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	metrics := observability.NewMetrics()
	return New(mock, zaptest.NewLogger(t), metrics), mock, metrics
}

func fallbackCount(t *testing.T, metrics *observability.Metrics, table string) float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "lookup_schema_fallbacks_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "table" && l.GetValue() == table {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestDepartmentsFirstSchema(t *testing.T) {
	repos, mock, _ := newMockRepos(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT department_id AS id, department_name AS name, COALESCE(code, '') AS code FROM departments WHERE is_active::INT = 1 ORDER BY department_name",
	)).WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}).
		AddRow(int64(2), "Arts", "ART").
		AddRow(int64(1), "Engineering", "ENG"))

	depts, err := repos.Departments.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, depts, 2)
	assert.Equal(t, "Arts", depts[0].Name)
	assert.Equal(t, "ENG", depts[1].Code)
	assert.True(t, depts[1].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentsFallsBackThroughSchemas(t *testing.T) {
	repos, mock, metrics := newMockRepos(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT department_id AS id, department_name AS name")).
		WillReturnError(errors.New(`column "department_name" does not exist`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT department_id AS id, name AS name")).
		WillReturnError(errors.New(`column "department_id" does not exist`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id AS id, name AS name, COALESCE(code, '') AS code FROM departments WHERE is_active::INT = 1 ORDER BY name")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}).
		AddRow(int64(7), "Business", ""))

	depts, err := repos.Departments.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, depts, 1)
	assert.Equal(t, int64(7), depts[0].ID)
	assert.Equal(t, 2.0, fallbackCount(t, metrics, "departments"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentsAllSchemasFail(t *testing.T) {
	repos, mock, _ := newMockRepos(t)

	for i := 0; i < 3; i++ {
		mock.ExpectQuery("FROM departments").WillReturnError(errors.New("relation \"departments\" does not exist"))
	}

	_, err := repos.Departments.ListActive(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `relation "departments" does not exist`)
	assert.False(t, apperrors.IsUnavailable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentsStopOnConnectError(t *testing.T) {
	repos, mock, _ := newMockRepos(t)

	mock.ExpectQuery("FROM departments").
		WillReturnError(fmt.Errorf("dial tcp 127.0.0.1:5432: %w", apperrors.ErrDatabaseUnavailable))

	_, err := repos.Departments.ListActive(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilDatabaseIsUnavailable(t *testing.T) {
	repos := New(nil, zaptest.NewLogger(t), nil)
	ctx := context.Background()

	_, err := repos.Departments.ListActive(ctx)
	assert.ErrorIs(t, err, apperrors.ErrDatabaseUnavailable)
	_, err = repos.Strands.List(ctx)
	assert.ErrorIs(t, err, apperrors.ErrDatabaseUnavailable)
	_, err = repos.Courses.ListByStrand(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrDatabaseUnavailable)
	_, err = repos.Courses.ListByDepartmentMatch(ctx, "engineering", "engineering")
	assert.ErrorIs(t, err, apperrors.ErrDatabaseUnavailable)
}

func TestStrandsCurrentSchema(t *testing.T) {
	repos, mock, _ := newMockRepos(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT strand_id AS id, strand, department_id FROM strands ORDER BY strand")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "strand", "department_id"}).
			AddRow(int64(1), "ABM", pgtype.Int8{Int64: 3, Valid: true}).
			AddRow(int64(2), "STEM", pgtype.Int8{}))

	strands, err := repos.Strands.List(context.Background())
	require.NoError(t, err)
	require.Len(t, strands, 2)
	require.NotNil(t, strands[0].DepartmentID)
	assert.Equal(t, int64(3), *strands[0].DepartmentID)
	assert.Nil(t, strands[1].DepartmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStrandsLegacySchema(t *testing.T) {
	repos, mock, metrics := newMockRepos(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT strand_id AS id")).
		WillReturnError(errors.New(`column "strand_id" does not exist`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, strand, NULL::BIGINT AS department_id FROM strands ORDER BY strand")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "strand", "department_id"}).
			AddRow(int64(4), "HUMSS", pgtype.Int8{}))

	strands, err := repos.Strands.List(context.Background())
	require.NoError(t, err)
	require.Len(t, strands, 1)
	assert.Equal(t, "HUMSS", strands[0].Name)
	assert.Nil(t, strands[0].DepartmentID)
	assert.Equal(t, 1.0, fallbackCount(t, metrics, "strands"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursesByStrand(t *testing.T) {
	repos, mock, _ := newMockRepos(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE is_active::INT = 1 AND strand_id = $1 ORDER BY name")).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}).
			AddRow(int64(11), "General Chemistry", "CHEM1"))

	courses, err := repos.Courses.ListByStrand(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "CHEM1", courses[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursesByDepartment(t *testing.T) {
	repos, mock, _ := newMockRepos(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM courses WHERE is_active::INT = 1 AND department_id = $1 ORDER BY name")).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}))

	courses, err := repos.Courses.ListByDepartment(context.Background(), 3)
	require.NoError(t, err)
	assert.NotNil(t, courses)
	assert.Empty(t, courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursesByDepartmentMatchLastJoin(t *testing.T) {
	repos, mock, _ := newMockRepos(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM courses c JOIN departments d ON d.department_id = c.department_id WHERE c.is_active::INT = 1 AND (LOWER(TRIM(d.department_name)) = $1 OR LOWER(TRIM(d.code)) = $2) ORDER BY c.name",
	)).WithArgs("engineering", "engineering").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}))
	mock.ExpectQuery(regexp.QuoteMeta(
		"JOIN departments d ON d.department_id = c.department_id WHERE c.is_active::INT = 1 AND (LOWER(TRIM(d.name)) = $1",
	)).WithArgs("engineering", "engineering").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}))
	mock.ExpectQuery(regexp.QuoteMeta(
		"JOIN departments d ON d.id = c.department_id WHERE c.is_active::INT = 1 AND (LOWER(TRIM(d.name)) = $1 OR LOWER(TRIM(d.code)) = $2)",
	)).WithArgs("engineering", "engineering").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}).
			AddRow(int64(21), "Statics", "ES101"))

	courses, err := repos.Courses.ListByDepartmentMatch(context.Background(), "engineering", "engineering")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Statics", courses[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursesByDepartmentMatchDepartmentIDWithNameColumn(t *testing.T) {
	repos, mock, metrics := newMockRepos(t)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(TRIM(d.department_name))")).
		WithArgs("engineering", "eng").
		WillReturnError(errors.New(`column d.department_name does not exist`))
	mock.ExpectQuery(regexp.QuoteMeta(
		"JOIN departments d ON d.department_id = c.department_id WHERE c.is_active::INT = 1 AND (LOWER(TRIM(d.name)) = $1 OR LOWER(TRIM(d.code)) = $2)",
	)).WithArgs("engineering", "eng").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}).
			AddRow(int64(30), "Thermodynamics", "ME201"))

	courses, err := repos.Courses.ListByDepartmentMatch(context.Background(), "engineering", "eng")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "ME201", courses[0].Code)
	assert.Equal(t, 1.0, fallbackCount(t, metrics, "departments"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursesByDepartmentMatchFirstJoinWins(t *testing.T) {
	repos, mock, _ := newMockRepos(t)

	mock.ExpectQuery(regexp.QuoteMeta("ON d.department_id = c.department_id")).
		WithArgs("engineering", "eng").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}).
			AddRow(int64(21), "Statics", "ES101"))

	courses, err := repos.Courses.ListByDepartmentMatch(context.Background(), "engineering", "eng")
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoursesByDepartmentMatchErrors(t *testing.T) {
	t.Run("failed variants skipped, others find nothing", func(t *testing.T) {
		repos, mock, _ := newMockRepos(t)
		mock.ExpectQuery(regexp.QuoteMeta("LOWER(TRIM(d.department_name))")).
			WithArgs("x", "x").
			WillReturnError(errors.New(`column d.department_name does not exist`))
		mock.ExpectQuery(regexp.QuoteMeta("ON d.department_id = c.department_id")).
			WithArgs("x", "x").
			WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code"}))
		mock.ExpectQuery(regexp.QuoteMeta("ON d.id = c.department_id")).
			WithArgs("x", "x").
			WillReturnError(errors.New(`column d.id does not exist`))

		courses, err := repos.Courses.ListByDepartmentMatch(context.Background(), "x", "x")
		require.NoError(t, err)
		assert.NotNil(t, courses)
		assert.Empty(t, courses)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("every variant fails", func(t *testing.T) {
		repos, mock, _ := newMockRepos(t)
		for _, msg := range []string{"first failure", "second failure", "third failure"} {
			mock.ExpectQuery("JOIN departments d").
				WithArgs("x", "x").
				WillReturnError(errors.New(msg))
		}

		_, err := repos.Courses.ListByDepartmentMatch(context.Background(), "x", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "third failure")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreachable database stops the fallback", func(t *testing.T) {
		repos, mock, _ := newMockRepos(t)
		mock.ExpectQuery("JOIN departments d").
			WithArgs("x", "x").
			WillReturnError(fmt.Errorf("dial tcp: %w", apperrors.ErrDatabaseUnavailable))

		_, err := repos.Courses.ListByDepartmentMatch(context.Background(), "x", "x")
		require.Error(t, err)
		assert.True(t, apperrors.IsUnavailable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFallbackCounterStartsAtZero(t *testing.T) {
	metrics := observability.NewMetrics()
	assert.Zero(t, fallbackCount(t, metrics, "departments"))
	count, err := testutil.GatherAndCount(metrics.Registry(), "lookup_schema_fallbacks_total")
	require.NoError(t, err)
	assert.Zero(t, count)
}
