package version

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/fileutil"
)

// FileWrite is the new content computed for one target.
type FileWrite struct {
	File         string `json:"file"`
	Path         string `json:"path"`
	Replacements int    `json:"replacements"`

	content []byte
	mode    os.FileMode
}

// Change is a validated bump over every target of a component. Nothing is
// written until Apply.
type Change struct {
	Old    string      `json:"old"`
	New    string      `json:"new"`
	Writes []FileWrite `json:"files"`
}

// Prepare computes the bump of a component without touching disk. Every
// target must hold exactly the version of the first target.
func Prepare(c *domain.Component, lookup PatternLookup, bump BumpType) (*Change, error) {
	targets, err := Targets(c, lookup)
	if err != nil {
		return nil, err
	}
	primary, err := targets[0].Read()
	if err != nil {
		return nil, err
	}
	next, err := Increment(primary.Version, bump)
	if err != nil {
		return nil, err
	}
	return PrepareSet(targets, primary.Version, next)
}

// PrepareSet rewrites old to new in every target. A target holding any
// other version aborts the whole set.
func PrepareSet(targets []*Target, old, new string) (*Change, error) {
	change := &Change{Old: old, New: new, Writes: make([]FileWrite, 0, len(targets))}
	for _, t := range targets {
		data, err := t.load()
		if err != nil {
			return nil, err
		}
		found, err := t.matches(data)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, apperror.InvalidArgument("version_targets",
				fmt.Sprintf("no version found in %s using pattern %s", t.File, t.Pattern), nil)
		}
		for _, v := range found {
			if v != old {
				return nil, apperror.Unexpected("Version mismatch in %s: found %s, expected %s", t.File, v, old).
					WithDetail("file", t.File).
					WithDetail("found", v).
					WithDetail("expected", old)
			}
		}

		var content []byte
		if t.IsJSON() {
			content, err = replaceJSONVersion(data, old, new)
			if err != nil {
				return nil, apperror.InvalidConfigJSON(t.Path, err)
			}
		} else {
			var replaced int
			content, replaced = t.replaceRegex(data, new)
			if replaced != len(found) {
				return nil, apperror.Unexpected("Version replacement count mismatch in %s: replaced %d, expected %d",
					t.File, replaced, len(found))
			}
		}

		mode := os.FileMode(0o644)
		if info, err := os.Stat(t.Path); err == nil {
			mode = info.Mode().Perm()
		}
		change.Writes = append(change.Writes, FileWrite{
			File:         t.File,
			Path:         t.Path,
			Replacements: len(found),
			content:      content,
			mode:         mode,
		})
	}
	return change, nil
}

// Apply writes secondary targets first and the authoritative target last,
// so an interrupted bump leaves the primary at the old version.
func (c *Change) Apply() error {
	if len(c.Writes) == 0 {
		return nil
	}
	order := append(append([]FileWrite{}, c.Writes[1:]...), c.Writes[0])
	for _, w := range order {
		if err := fileutil.WriteAtomic(w.Path, w.content, w.mode); err != nil {
			slog.Error("Service operation failed",
				"layer", "version",
				"operation", "write_target",
				"file", w.Path,
				"error", err)
			return apperror.IO("write", w.Path, err)
		}
		slog.Debug("Version target written", "file", w.Path, "version", c.New)
	}
	return nil
}

// replaceRegex substitutes capture group 1 of every match.
func (t *Target) replaceRegex(data []byte, new string) ([]byte, int) {
	var buf bytes.Buffer
	last, count := 0, 0
	for _, loc := range t.re.FindAllSubmatchIndex(data, -1) {
		if loc[2] < 0 {
			continue
		}
		buf.Write(data[last:loc[2]])
		buf.WriteString(new)
		last = loc[3]
		count++
	}
	buf.Write(data[last:])
	return buf.Bytes(), count
}

// replaceJSONVersion swaps the value of the top-level "version" key in place
// so the rest of the document keeps its formatting and key order.
func replaceJSONVersion(data []byte, old, new string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		start := int(dec.InputOffset())
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if key, _ := keyTok.(string); key != "version" {
			continue
		}
		end := int(dec.InputOffset())

		oldValue, _ := json.Marshal(old)
		idx := bytes.LastIndex(data[start:end], oldValue)
		if idx < 0 {
			return nil, fmt.Errorf("version value %s not found", oldValue)
		}
		newValue, _ := json.Marshal(new)

		var out bytes.Buffer
		out.Write(data[:start+idx])
		out.Write(newValue)
		out.Write(data[start+idx+len(oldValue):])
		return out.Bytes(), nil
	}
	return nil, fmt.Errorf("no top-level version key")
}
