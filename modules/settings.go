package modules

import (
	"fmt"
	"sort"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
)

// MergedSettings layers schema defaults, then project settings, then
// component settings. Every supplied key must be declared by the module
// with a matching type.
func MergedSettings(m *domain.Manifest, project, component map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for _, spec := range m.Settings {
		if spec.Default != nil {
			out[spec.ID] = spec.Default
		}
	}

	var errs []*apperror.Error
	for _, layer := range []struct {
		scope  string
		values map[string]any
	}{{"project", project}, {"component", component}} {
		keys := make([]string, 0, len(layer.values))
		for key := range layer.values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value := layer.values[key]
			field := fmt.Sprintf("%s.modules.%s.%s", layer.scope, m.ID, key)
			spec, ok := m.Setting(key)
			if !ok {
				errs = append(errs, apperror.InvalidValue(field, value, fmt.Sprintf("module '%s' declares no setting '%s'", m.ID, key)))
				continue
			}
			if !matchesType(spec.Type, value) {
				errs = append(errs, apperror.InvalidValue(field, value, fmt.Sprintf("must be of type %s", spec.Type)))
				continue
			}
			out[key] = value
		}
	}
	if len(errs) > 0 {
		return nil, apperror.Multiple(errs)
	}
	return out, nil
}

func matchesType(t domain.SettingType, v any) bool {
	switch t {
	case domain.SettingString:
		_, ok := v.(string)
		return ok
	case domain.SettingNumber:
		switch v.(type) {
		case float64, float32, int, int64, int32, uint, uint64, uint32:
			return true
		}
		return false
	case domain.SettingBoolean:
		_, ok := v.(bool)
		return ok
	case domain.SettingJSON:
		return true
	default:
		return false
	}
}

// SettingsFor merges the settings a project and component supply for the
// module.
func SettingsFor(m *domain.Manifest, p *domain.Project, c *domain.Component) (map[string]any, error) {
	var projectSettings, componentSettings map[string]any
	if p != nil {
		projectSettings = p.Modules[m.ID]
	}
	if c != nil {
		componentSettings = c.Modules[m.ID]
	}
	return MergedSettings(m, projectSettings, componentSettings)
}
