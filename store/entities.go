package store

import (
	"sort"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
)

func (s *Store) Component(id string) (*domain.Component, error) {
	return Load[domain.Component](s, id)
}

func (s *Store) Project(id string) (*domain.Project, error) {
	return Load[domain.Project](s, id)
}

func (s *Store) Server(id string) (*domain.Server, error) {
	return Load[domain.Server](s, id)
}

func (s *Store) Components() ([]*domain.Component, error) {
	return List[domain.Component](s)
}

func (s *Store) Projects() ([]*domain.Project, error) {
	return List[domain.Project](s)
}

func (s *Store) Servers() ([]*domain.Server, error) {
	return List[domain.Server](s)
}

// ProjectsUsing returns the projects whose component_ids contain
// componentID, sorted by id.
func (s *Store) ProjectsUsing(componentID string) ([]*domain.Project, error) {
	projects, err := s.Projects()
	if err != nil {
		return nil, err
	}
	out := []*domain.Project{}
	for _, p := range projects {
		if p.HasComponent(componentID) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ProjectComponents loads the components a project references, in order.
// Dangling references are reported as not found.
func (s *Store) ProjectComponents(p *domain.Project) ([]*domain.Component, error) {
	out := make([]*domain.Component, 0, len(p.ComponentIDs))
	for _, id := range p.ComponentIDs {
		c, err := s.Component(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Finding is a dangling reference found while checking a project.
type Finding struct {
	Field   string `json:"field"`
	ID      string `json:"id"`
	Problem string `json:"problem"`
}

// Findings reports references from p to records that do not exist.
func (s *Store) Findings(p *domain.Project) []Finding {
	findings := []Finding{}
	for _, id := range p.ComponentIDs {
		if !Exists[domain.Component](s, id) {
			findings = append(findings, Finding{Field: "component_ids", ID: id, Problem: "component not found"})
		}
	}
	if p.ServerID != "" && !Exists[domain.Server](s, p.ServerID) {
		findings = append(findings, Finding{Field: "server_id", ID: p.ServerID, Problem: "server not found"})
	}
	return findings
}

// DeleteComponent removes a component. A component still referenced by a
// project is kept unless force is set.
func (s *Store) DeleteComponent(id string, force bool) error {
	if !force {
		users, err := s.ProjectsUsing(id)
		if err != nil {
			return err
		}
		if len(users) > 0 {
			ids := make([]string, 0, len(users))
			for _, p := range users {
				ids = append(ids, p.ID)
			}
			return apperror.InvalidArgument("component_id", "component '"+id+"' is used by projects", ids).
				WithHint("Remove it from those projects first or pass --force")
		}
	}
	return Delete[domain.Component](s, id)
}

// ResolveComponentProject picks the project a component-only command runs
// under: the active project when it owns the component, else the single
// project using it. Zero or ambiguous matches return nil.
func (s *Store) ResolveComponentProject(componentID, activeProjectID string) (*domain.Project, error) {
	users, err := s.ProjectsUsing(componentID)
	if err != nil {
		return nil, err
	}
	for _, p := range users {
		if p.ID == activeProjectID {
			return p, nil
		}
	}
	if len(users) == 1 {
		return users[0], nil
	}
	return nil, nil
}
