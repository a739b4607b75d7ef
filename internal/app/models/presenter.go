package models

// Degree identifies the academic track of a presenter. The degree drives the
// capacity weight of a talk.
type Degree string

const (
	DegreePhD Degree = "PHD"
	DegreeMSc Degree = "MSC"
)

// Valid reports whether the degree is one of the known tracks.
func (d Degree) Valid() bool {
	return d == DegreePhD || d == DegreeMSc
}

// Presenter represents a student who can register for a seminar slot.
type Presenter struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Degree    Degree `json:"degree"`
}

// FullName returns the display name used in emails.
func (p *Presenter) FullName() string {
	return p.FirstName + " " + p.LastName
}
