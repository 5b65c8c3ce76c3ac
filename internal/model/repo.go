package model

import (
	"fmt"
	"sort"
)

// Repo is a single repository under evaluation.
type Repo struct {
	Name     string
	Location string
}

// Fleet is the ordered repository set, sorted lexicographically by name.
type Fleet []Repo

// NewFleet sorts the repositories by name and rejects duplicate names.
func NewFleet(repos []Repo) (Fleet, error) {
	sorted := append(Fleet(nil), repos...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Name == sorted[i-1].Name {
			return nil, fmt.Errorf("fleet: duplicate repository %q", sorted[i].Name)
		}
	}
	return sorted, nil
}

// Names returns the repository names in fleet order.
func (f Fleet) Names() []string {
	names := make([]string, len(f))
	for i, r := range f {
		names[i] = r.Name
	}
	return names
}
