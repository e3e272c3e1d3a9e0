// Package rank defines the closed, ordered rank enum and the authorization
// tables driven by it: permission membership and rank visibility. The two
// tables are authored independently; neither is derived from the other.
package rank

import "fmt"

// Rank is an ordered role. A higher Level outranks a lower one.
type Rank string

const (
	Developer Rank = "developer"
	Admin     Rank = "admin"
	Moderator Rank = "moderator"
	Werknemer Rank = "werknemer"
	Gebruiker Rank = "gebruiker"
)

// levels gives the total order. Higher means more senior.
var levels = map[Rank]int{
	Developer: 5,
	Admin:     4,
	Moderator: 3,
	Werknemer: 2,
	Gebruiker: 1,
}

// All lists every rank, most senior first.
var All = []Rank{Developer, Admin, Moderator, Werknemer, Gebruiker}

// Parse returns the Rank for s, or an error for unknown values.
func Parse(s string) (Rank, error) {
	r := Rank(s)
	if _, ok := levels[r]; !ok {
		return "", fmt.Errorf("unknown rank %q", s)
	}
	return r, nil
}

// Valid reports whether r is a known rank.
func (r Rank) Valid() bool {
	_, ok := levels[r]
	return ok
}

// Level returns r's position in the total order; 0 for unknown ranks.
func (r Rank) Level() int {
	return levels[r]
}

// Outranks reports whether r is strictly senior to other.
func (r Rank) Outranks(other Rank) bool {
	return levels[r] > levels[other]
}

func (r Rank) String() string { return string(r) }
