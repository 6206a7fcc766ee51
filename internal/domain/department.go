package domain

// Department represents an academic organizational unit.
type Department struct {
	ID       int64
	Name     string
	Code     string
	IsActive bool
}
