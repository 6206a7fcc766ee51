package domain

// Strand is a senior-high academic track. Legacy schemas carry no department link.
type Strand struct {
	ID           int64
	Name         string
	DepartmentID *int64
}
