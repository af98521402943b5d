// Package domain provides the records Homeboy persists and the transient
// values that flow through a release.
package domain

// EntityType discriminates the persisted record kinds.
type EntityType string

const (
	EntityComponent EntityType = "component"
	EntityProject   EntityType = "project"
	EntityServer    EntityType = "server"
	EntityModule    EntityType = "module"
)

// Dir returns the config subdirectory holding records of this type.
func (t EntityType) Dir() string {
	return string(t) + "s"
}

// Title is the capitalized name used in user-facing messages.
func (t EntityType) Title() string {
	switch t {
	case EntityComponent:
		return "Component"
	case EntityProject:
		return "Project"
	case EntityServer:
		return "Server"
	case EntityModule:
		return "Module"
	default:
		return string(t)
	}
}

// Entity is implemented by every record stored one-file-per-id.
type Entity interface {
	EntityID() string
	SetEntityID(id string)
	// EntityName is the human name the id is derived from. Empty means the
	// id itself must already be a slug.
	EntityName() string
	EntityType() EntityType
}

// ModuleSettings maps module id to the settings object a project or
// component supplies for it.
type ModuleSettings map[string]map[string]any

// IDs returns the module ids in sorted order.
func (m ModuleSettings) IDs() []string {
	return sortedKeys(m)
}
