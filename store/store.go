// Package store persists components, projects and servers as one JSON file
// per record under the config root.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/config"
	"github.com/homeboy-cli/homeboy/domain"
	"github.com/homeboy-cli/homeboy/internal/fileutil"
	"github.com/homeboy-cli/homeboy/internal/validation"
)

// recordTypes are the entity types whose ids share one namespace.
var recordTypes = []domain.EntityType{domain.EntityComponent, domain.EntityProject, domain.EntityServer}

var notFoundCodes = map[domain.EntityType]apperror.Code{
	domain.EntityComponent: apperror.ComponentNotFound,
	domain.EntityProject:   apperror.ProjectNotFound,
	domain.EntityServer:    apperror.ServerNotFound,
	domain.EntityModule:    apperror.ModuleNotFound,
}

// Store reads and writes records below a config root.
type Store struct {
	paths config.Paths
}

// New creates a store rooted at paths.Root.
func New(paths config.Paths) *Store {
	return &Store{paths: paths}
}

// Paths returns the config paths the store writes under.
func (s *Store) Paths() config.Paths {
	return s.paths
}

// PathFor returns the file holding the record of type t with the given id.
func (s *Store) PathFor(t domain.EntityType, id string) string {
	return filepath.Join(s.paths.EntityDir(t), id+".json")
}

// NotFound builds the typed not-found error for t, suggesting known ids.
func (s *Store) NotFound(t domain.EntityType, id string) *apperror.Error {
	known, _ := s.IDs(t)
	return apperror.NotFound(notFoundCodes[t], t.Title(), id, known)
}

// IDs lists the ids of every record of type t, sorted.
func (s *Store) IDs(t domain.EntityType) ([]string, error) {
	entries, err := os.ReadDir(s.paths.EntityDir(t))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, apperror.IO("list", s.paths.EntityDir(t), err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) exists(t domain.EntityType, id string) bool {
	_, err := os.Stat(s.PathFor(t, id))
	return err == nil
}

// entityPtr constrains P to be *T and a domain.Entity.
type entityPtr[T any] interface {
	*T
	domain.Entity
}

func typeOf[T any, P entityPtr[T]]() domain.EntityType {
	return P(new(T)).EntityType()
}

// Load reads the record with the given id.
func Load[T any, P entityPtr[T]](s *Store, id string) (P, error) {
	t := typeOf[T, P]()
	if err := ValidateID(string(t)+"_id", id); err != nil {
		return nil, err
	}

	path := s.PathFor(t, id)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, s.NotFound(t, id)
	}
	if err != nil {
		return nil, apperror.IO("read", path, err)
	}

	e := P(new(T))
	if err := json.Unmarshal(data, e); err != nil {
		return nil, apperror.InvalidConfigJSON(path, err)
	}
	e.SetEntityID(id)
	return e, nil
}

// Save validates e and writes it atomically.
func Save[P domain.Entity](s *Store, e P) error {
	t := e.EntityType()
	if err := checkID(e); err != nil {
		return err
	}
	if err := validation.Struct(e); err != nil {
		return err
	}

	id := e.EntityID()
	for _, other := range recordTypes {
		if other != t && s.exists(other, id) {
			return apperror.IDCollision(id, string(t), string(other))
		}
	}

	path := s.PathFor(t, id)
	data, err := fileutil.MarshalPretty(e)
	if err != nil {
		return apperror.JSON("encode "+string(t), err)
	}
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		slog.Error("Service operation failed",
			"layer", "store",
			"operation", "save",
			"entity_type", t,
			"id", id,
			"error", err)
		return apperror.IO("write", path, err)
	}
	slog.Debug("Record saved", "entity_type", t, "id", id, "path", path)
	return nil
}

// checkID enforces id == slug(name). Records without a name need an id
// that is already a slug.
func checkID(e domain.Entity) error {
	name := strings.TrimSpace(e.EntityName())
	if name == "" {
		return ValidateID("id", e.EntityID())
	}

	want := domain.Slugify(name)
	if want == "" {
		return apperror.InvalidValue("name", name, "must contain at least one letter or digit")
	}
	if e.EntityID() == "" {
		e.SetEntityID(want)
	}
	if e.EntityID() != want {
		return apperror.InvalidValue("id", e.EntityID(),
			fmt.Sprintf("must equal the slug of name '%s' (expected '%s')", name, want))
	}
	return nil
}

// List loads every record of the type, sorted by id.
func List[T any, P entityPtr[T]](s *Store) ([]P, error) {
	ids, err := s.IDs(typeOf[T, P]())
	if err != nil {
		return nil, err
	}
	out := make([]P, 0, len(ids))
	for _, id := range ids {
		e, err := Load[T, P](s, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Exists reports whether a record with the id is stored.
func Exists[T any, P entityPtr[T]](s *Store, id string) bool {
	if ValidateID("id", id) != nil {
		return false
	}
	return s.exists(typeOf[T, P](), id)
}

// Delete removes the record with the given id.
func Delete[T any, P entityPtr[T]](s *Store, id string) error {
	t := typeOf[T, P]()
	if err := ValidateID(string(t)+"_id", id); err != nil {
		return err
	}
	path := s.PathFor(t, id)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.NotFound(t, id)
		}
		return apperror.IO("delete", path, err)
	}
	slog.Debug("Record deleted", "entity_type", t, "id", id)
	return nil
}

// Merge applies a JSON merge patch to the stored record and saves the result.
func Merge[T any, P entityPtr[T]](s *Store, id string, patch []byte, replaceFields []string) (*MergeOutput, error) {
	t := typeOf[T, P]()
	if _, err := Load[T, P](s, id); err != nil {
		return nil, err
	}

	path := s.PathFor(t, id)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.IO("read", path, err)
	}
	var current map[string]any
	if err := json.Unmarshal(data, &current); err != nil {
		return nil, apperror.InvalidConfigJSON(path, err)
	}

	var patchObj map[string]any
	if err := json.Unmarshal(patch, &patchObj); err != nil || patchObj == nil {
		if err == nil {
			err = errors.New("patch must be a JSON object")
		}
		return nil, apperror.InvalidJSONInput("patch", err)
	}

	merged, out := MergePatch(current, patchObj, replaceFields)
	out.ID = id

	if v, ok := merged["id"]; ok && v != id {
		return nil, apperror.InvalidArgument("id", "cannot be changed by merge", []string{fmt.Sprint(v)})
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, apperror.JSON("encode merged "+string(t), err)
	}
	e := P(new(T))
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, apperror.InvalidJSONInput("patch", err)
	}
	e.SetEntityID(id)

	if err := Save(s, e); err != nil {
		return nil, err
	}
	return out, nil
}
