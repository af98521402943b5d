package domain

import (
	"fmt"
	"strings"
)

// RefactorPolicy decides where refactor entries land in a finalized changelog.
type RefactorPolicy string

const (
	RefactorAsChanged    RefactorPolicy = "as_changed"
	RefactorAsRefactored RefactorPolicy = "as_refactored"
)

// IsValid checks if the policy is one of the known values
func (p RefactorPolicy) IsValid() bool {
	switch p {
	case RefactorAsChanged, RefactorAsRefactored:
		return true
	default:
		return false
	}
}

// ParseRefactorPolicy parses a string into a RefactorPolicy
func ParseRefactorPolicy(s string) (RefactorPolicy, error) {
	p := RefactorPolicy(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid refactor policy: %s", s)
	}
	return p, nil
}

// ProjectChangelog holds project-level changelog policy.
type ProjectChangelog struct {
	RefactorPolicy RefactorPolicy `json:"refactor_policy,omitempty" validate:"omitempty,oneof=as_changed as_refactored"`
}

// SubTarget is a named alternative domain of a project, e.g. a multisite
// child. Number, when set, derives the table prefix of the sub-site.
type SubTarget struct {
	Name   string `json:"name" validate:"required"`
	Domain string `json:"domain" validate:"required"`
	Number *int   `json:"number,omitempty"`
}

// TablePrefix derives the database table prefix for the sub-target from the
// project's base prefix: "wp_" with number 3 yields "wp_3_".
func (s SubTarget) TablePrefix(base string) string {
	if s.Number == nil || *s.Number <= 1 {
		return base
	}
	return fmt.Sprintf("%s%d_", base, *s.Number)
}

// Project groups components bound to a server and base path.
type Project struct {
	ID           string            `json:"id" validate:"required"`
	Name         string            `json:"name" validate:"required"`
	Domain       string            `json:"domain,omitempty"`
	ServerID     string            `json:"server_id,omitempty"`
	BasePath     string            `json:"base_path,omitempty"`
	TablePrefix  string            `json:"table_prefix,omitempty"`
	ComponentIDs []string          `json:"component_ids,omitempty"`
	SubTargets   []SubTarget       `json:"sub_targets,omitempty" validate:"dive"`
	Modules      ModuleSettings    `json:"modules,omitempty"`
	Changelog    *ProjectChangelog `json:"changelog,omitempty"`
}

func (p *Project) EntityID() string       { return p.ID }
func (p *Project) SetEntityID(id string)  { p.ID = id }
func (p *Project) EntityName() string     { return p.Name }
func (p *Project) EntityType() EntityType { return EntityProject }

// HasComponent reports whether componentID is owned by the project.
func (p *Project) HasComponent(componentID string) bool {
	for _, id := range p.ComponentIDs {
		if id == componentID {
			return true
		}
	}
	return false
}

// SubTarget finds a sub-target by name (case-insensitive).
func (p *Project) SubTarget(name string) (*SubTarget, bool) {
	for i := range p.SubTargets {
		if strings.EqualFold(p.SubTargets[i].Name, name) {
			return &p.SubTargets[i], true
		}
	}
	return nil, false
}

// RefactorPolicy returns the project's policy or "" when unset.
func (p *Project) RefactorPolicy() RefactorPolicy {
	if p.Changelog == nil {
		return ""
	}
	return p.Changelog.RefactorPolicy
}
