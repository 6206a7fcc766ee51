package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/enrollment-lookup/internal/domain"
	"github.com/spec-kit/enrollment-lookup/internal/repository"
)

// CatalogService answers the enrollment form's dropdown lookups.
type CatalogService struct {
	departments repository.DepartmentRepository
	strands     repository.StrandRepository
	courses     repository.CourseRepository
	logger      *zap.Logger
}

// CatalogDependencies encapsulates repositories required for lookups.
type CatalogDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	StrandRepo     repository.StrandRepository
	CourseRepo     repository.CourseRepository
}

// CourseFilter carries the get_courses query parameters.
// A nil DepartmentID means the parameter was absent.
type CourseFilter struct {
	StrandID       int64
	DepartmentID   *int64
	DepartmentName string
	DepartmentCode string
}

// NewCatalogService constructs the service.
func NewCatalogService(deps CatalogDependencies, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		departments: deps.DepartmentRepo,
		strands:     deps.StrandRepo,
		courses:     deps.CourseRepo,
		logger:      logger,
	}
}

// ListDepartments returns active departments ordered by name.
func (s *CatalogService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.departments.ListActive(ctx)
}

// ListStrands returns all strands ordered by name.
func (s *CatalogService) ListStrands(ctx context.Context) ([]domain.Strand, error) {
	return s.strands.List(ctx)
}

// ListCourses resolves courses in this order: strand, department name when no
// id was sent, department id, then department name again if the id found nothing.
func (s *CatalogService) ListCourses(ctx context.Context, filter CourseFilter) ([]domain.Course, error) {
	if filter.StrandID > 0 {
		return s.courses.ListByStrand(ctx, filter.StrandID)
	}

	name, code, byName := departmentNeedles(filter)

	if filter.DepartmentID == nil && byName {
		courses, err := s.courses.ListByDepartmentMatch(ctx, name, code)
		if err != nil {
			return nil, err
		}
		if len(courses) > 0 {
			return courses, nil
		}
	}

	if filter.DepartmentID == nil || *filter.DepartmentID <= 0 {
		return []domain.Course{}, nil
	}

	courses, err := s.courses.ListByDepartment(ctx, *filter.DepartmentID)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 && byName {
		s.logger.Debug("no courses for department id; matching by name",
			zap.Int64("department_id", *filter.DepartmentID),
			zap.String("department_name", name),
		)
		return s.courses.ListByDepartmentMatch(ctx, name, code)
	}
	return courses, nil
}

// departmentNeedles normalizes the name/code pair for a case-insensitive
// match. A lone name or code stands in for the other.
func departmentNeedles(filter CourseFilter) (name, code string, ok bool) {
	name = strings.ToLower(strings.TrimSpace(filter.DepartmentName))
	code = strings.ToLower(strings.TrimSpace(filter.DepartmentCode))
	switch {
	case name == "" && code == "":
		return "", "", false
	case name == "":
		name = code
	case code == "":
		code = name
	}
	return name, code, true
}
