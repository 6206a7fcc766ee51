package dto

// DepartmentOption is one entry of the department dropdown.
type DepartmentOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// StrandOption is one entry of the strand dropdown. DepartmentID is null
// when the schema carries no department link.
type StrandOption struct {
	ID           int64  `json:"id"`
	Strand       string `json:"strand"`
	DepartmentID *int64 `json:"department_id"`
}

// CourseOption is one entry of the course dropdown.
type CourseOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}
