package store

import (
	"sort"
	"strings"
)

// MergeOutput reports what a merge patch did to a record.
type MergeOutput struct {
	ID string `json:"id"`
	// Set lists JSON pointers whose values were written.
	Set []string `json:"set"`
	// Removed lists JSON pointers deleted by a null in the patch.
	Removed []string `json:"removed"`
	// Retained lists top-level fields the patch did not mention.
	Retained []string `json:"retained"`
}

// NormalizeFieldPath accepts "a.b" or "/a/b" and returns a JSON pointer.
func NormalizeFieldPath(field string) string {
	field = strings.TrimSpace(field)
	if field == "" || strings.HasPrefix(field, "/") {
		return field
	}
	parts := strings.Split(field, ".")
	for i, p := range parts {
		parts[i] = escapePointer(p)
	}
	return "/" + strings.Join(parts, "/")
}

func escapePointer(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, "~", "~0"), "/", "~1")
}

type merger struct {
	replace map[string]bool
	out     *MergeOutput
}

// MergePatch applies an RFC 7396 merge patch to target. Fields listed in
// replaceFields are replaced wholesale even when both sides are objects.
func MergePatch(target, patch map[string]any, replaceFields []string) (map[string]any, *MergeOutput) {
	m := &merger{
		replace: map[string]bool{},
		out:     &MergeOutput{Set: []string{}, Removed: []string{}, Retained: []string{}},
	}
	for _, f := range replaceFields {
		if p := NormalizeFieldPath(f); p != "" {
			m.replace[p] = true
		}
	}

	result := m.mergeObject(target, patch, "")

	for k := range target {
		if _, touched := patch[k]; !touched {
			m.out.Retained = append(m.out.Retained, k)
		}
	}
	sort.Strings(m.out.Set)
	sort.Strings(m.out.Removed)
	sort.Strings(m.out.Retained)
	return result, m.out
}

func (m *merger) mergeObject(target, patch map[string]any, ptr string) map[string]any {
	result := make(map[string]any, len(target)+len(patch))
	for k, v := range target {
		result[k] = v
	}
	for k, v := range patch {
		child := ptr + "/" + escapePointer(k)
		if v == nil {
			if _, ok := result[k]; ok {
				delete(result, k)
				m.out.Removed = append(m.out.Removed, child)
			}
			continue
		}
		result[k] = m.apply(result[k], v, child)
	}
	return result
}

func (m *merger) apply(target, patch any, ptr string) any {
	patchObj, ok := patch.(map[string]any)
	if !ok {
		m.out.Set = append(m.out.Set, ptr)
		return patch
	}
	targetObj, ok := target.(map[string]any)
	if !ok || m.replace[ptr] {
		m.out.Set = append(m.out.Set, ptr)
		return stripNulls(patchObj)
	}
	return m.mergeObject(targetObj, patchObj, ptr)
}

// stripNulls deep-copies obj without null members, which is what merging
// a patch into an empty object yields.
func stripNulls(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		switch tv := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = stripNulls(tv)
		default:
			out[k] = v
		}
	}
	return out
}
