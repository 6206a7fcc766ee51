package domain

// Course is an offering under a department and/or a strand.
type Course struct {
	ID           int64
	Name         string
	Code         string
	DepartmentID *int64
	StrandID     *int64
	IsActive     bool
}
