package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/enrollment-lookup/internal/api/dto"
	"github.com/spec-kit/enrollment-lookup/internal/domain"
	"github.com/spec-kit/enrollment-lookup/internal/service"
)

// CatalogReader is the lookup surface the handlers depend on.
type CatalogReader interface {
	ListDepartments(ctx context.Context) ([]domain.Department, error)
	ListStrands(ctx context.Context) ([]domain.Strand, error)
	ListCourses(ctx context.Context, filter service.CourseFilter) ([]domain.Course, error)
}

// LookupHandler serves the department, strand and course dropdowns.
type LookupHandler struct {
	catalog CatalogReader
}

// NewLookupHandler constructs handler.
func NewLookupHandler(catalog CatalogReader) *LookupHandler {
	return &LookupHandler{catalog: catalog}
}

// Departments handles GET /get_departments.
func (h *LookupHandler) Departments(c *fiber.Ctx) error {
	depts, err := h.catalog.ListDepartments(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.DepartmentOption, 0, len(depts))
	for _, d := range depts {
		resp = append(resp, dto.DepartmentOption{ID: d.ID, Name: d.Name, Code: d.Code})
	}
	return c.JSON(fiber.Map{"ok": true, "data": resp})
}

// Strands handles GET /get_strands.
func (h *LookupHandler) Strands(c *fiber.Ctx) error {
	strands, err := h.catalog.ListStrands(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.StrandOption, 0, len(strands))
	for _, s := range strands {
		resp = append(resp, dto.StrandOption{ID: s.ID, Strand: s.Name, DepartmentID: s.DepartmentID})
	}
	return c.JSON(fiber.Map{"ok": true, "data": resp})
}

// Courses handles GET /get_courses.
func (h *LookupHandler) Courses(c *fiber.Ctx) error {
	courses, err := h.catalog.ListCourses(c.UserContext(), parseCourseFilter(c))
	if err != nil {
		return err
	}
	resp := make([]dto.CourseOption, 0, len(courses))
	for _, course := range courses {
		resp = append(resp, dto.CourseOption{ID: course.ID, Name: course.Name, Code: course.Code})
	}
	return c.JSON(fiber.Map{"ok": true, "data": resp})
}

func parseCourseFilter(c *fiber.Ctx) service.CourseFilter {
	filter := service.CourseFilter{
		StrandID:       parseInt64Query(c, "strand_id"),
		DepartmentName: c.Query("department_name"),
		DepartmentCode: c.Query("department_code"),
	}
	if filter.DepartmentName == "" {
		filter.DepartmentName = c.Query("department")
	}
	if strings.TrimSpace(c.Query("department_id")) != "" {
		deptID := parseInt64Query(c, "department_id")
		filter.DepartmentID = &deptID
	}
	return filter
}

// parseInt64Query returns 0 for a missing or malformed value.
func parseInt64Query(c *fiber.Ctx, key string) int64 {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
