package triage

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed requirements.yaml
var defaultCatalog []byte

// Requirement is one entry of the documentary checklist. Immutable once the
// registry is built.
type Requirement struct {
	ID                string `yaml:"id"`
	DisplayName       string `yaml:"display_name"`
	Mandatory         bool   `yaml:"mandatory"`
	MaxAgeDays        *int   `yaml:"max_age_days"`
	AutoGenerable     bool   `yaml:"auto_generable"`
	BlockingIfInvalid bool   `yaml:"blocking_if_invalid"`
	IsFinancial       bool   `yaml:"is_financial"`
}

// Registry is the static requirement catalog. Iteration order is catalog
// order, which makes every downstream sequence (analyses, issues, reports)
// deterministic.
type Registry struct {
	ordered []Requirement
	byID    map[string]*Requirement
}

// NewRegistry builds a registry from an explicit requirement list.
// It fails on duplicate or empty ids.
func NewRegistry(reqs []Requirement) (*Registry, error) {
	r := &Registry{
		ordered: make([]Requirement, len(reqs)),
		byID:    make(map[string]*Requirement, len(reqs)),
	}
	copy(r.ordered, reqs)
	for i := range r.ordered {
		req := &r.ordered[i]
		if req.ID == "" {
			return nil, fmt.Errorf("requirement %d: empty id", i)
		}
		if _, dup := r.byID[req.ID]; dup {
			return nil, fmt.Errorf("duplicate requirement id %q", req.ID)
		}
		r.byID[req.ID] = req
	}
	return r, nil
}

// DefaultRegistry parses the embedded catalog.
func DefaultRegistry() (*Registry, error) {
	var doc struct {
		Requirements []Requirement `yaml:"requirements"`
	}
	if err := yaml.Unmarshal(defaultCatalog, &doc); err != nil {
		return nil, fmt.Errorf("parse requirement catalog: %w", err)
	}
	if len(doc.Requirements) == 0 {
		return nil, fmt.Errorf("requirement catalog is empty")
	}
	return NewRegistry(doc.Requirements)
}

// Get returns the requirement for id.
func (r *Registry) Get(id string) (*Requirement, bool) {
	req, ok := r.byID[id]
	return req, ok
}

// All returns the requirements in catalog order. Callers must not mutate
// the returned slice.
func (r *Registry) All() []Requirement {
	return r.ordered
}

// Len returns the number of requirements in the catalog.
func (r *Registry) Len() int {
	return len(r.ordered)
}
