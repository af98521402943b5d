// Package keyring stores secrets per scope in fernet-encrypted files under
// the config root's keys/ directory.
package keyring

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/gosimple/slug"

	"github.com/homeboy-cli/homeboy/apperror"
	"github.com/homeboy-cli/homeboy/internal/fileutil"
)

// tokenTTL keeps stored secrets readable indefinitely.
const tokenTTL = time.Hour * 24 * 365 * 100

// Keyring maps (scope, variable) to an encrypted value.
type Keyring struct {
	dir string
	key *fernet.Key
}

// GenerateKey returns a new encoded fernet key.
func GenerateKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", fmt.Errorf("failed to generate keyring key: %w", err)
	}
	return k.Encode(), nil
}

// New opens the keyring in dir with an encoded fernet key.
func New(dir, keyString string) (*Keyring, error) {
	if keyString == "" {
		return nil, apperror.Unexpected("keyring key cannot be empty")
	}
	key, err := fernet.DecodeKey(keyString)
	if err != nil {
		return nil, apperror.Wrap(apperror.InternalUnexpected, err, "invalid keyring key")
	}
	return &Keyring{dir: dir, key: key}, nil
}

// Dir returns the directory holding the scope files.
func (k *Keyring) Dir() string {
	return k.dir
}

func (k *Keyring) scopePath(scope string) (string, error) {
	name := slug.Make(scope)
	if name == "" {
		return "", apperror.InvalidArgument("scope", fmt.Sprintf("'%s' is not a usable keyring scope", scope), nil)
	}
	return filepath.Join(k.dir, name+".json"), nil
}

func (k *Keyring) load(scope string) (map[string]string, string, error) {
	path, err := k.scopePath(scope)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, path, nil
	}
	if err != nil {
		return nil, path, apperror.Wrap(apperror.InternalUnexpected, err, "failed to read keyring scope "+scope)
	}
	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, path, apperror.Wrap(apperror.InternalUnexpected, err, "keyring scope "+scope+" is corrupt")
	}
	return entries, path, nil
}

func (k *Keyring) save(path string, entries map[string]string) error {
	if len(entries) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return apperror.Wrap(apperror.InternalUnexpected, err, "failed to remove "+path)
		}
		return nil
	}
	data, err := fileutil.MarshalPretty(entries)
	if err != nil {
		return apperror.Wrap(apperror.InternalUnexpected, err, "failed to encode keyring scope")
	}
	if err := fileutil.WriteAtomic(path, data, 0o600); err != nil {
		slog.Error("Service operation failed",
			"layer", "keyring",
			"operation", "save",
			"path", path,
			"error", err)
		return apperror.Wrap(apperror.InternalUnexpected, err, "failed to write "+path)
	}
	return nil
}

func (k *Keyring) encrypt(plaintext string) (string, error) {
	token, err := fernet.EncryptAndSign([]byte(plaintext), k.key)
	if err != nil {
		return "", apperror.Wrap(apperror.InternalUnexpected, err, "encryption failed")
	}
	return base64.StdEncoding.EncodeToString(token), nil
}

func (k *Keyring) decrypt(token string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", apperror.Wrap(apperror.InternalUnexpected, err, "invalid keyring token")
	}
	plaintext := fernet.VerifyAndDecrypt(raw, tokenTTL, []*fernet.Key{k.key})
	if plaintext == nil {
		return "", apperror.Unexpected("failed to decrypt keyring token: wrong key or corrupt value")
	}
	return string(plaintext), nil
}

func checkVariable(variable string) error {
	if strings.TrimSpace(variable) == "" {
		return apperror.InvalidArgument("variable", "variable name cannot be empty", nil)
	}
	return nil
}

// Store sets variable in scope, replacing any previous value.
func (k *Keyring) Store(scope, variable, value string) error {
	if err := checkVariable(variable); err != nil {
		return err
	}
	entries, path, err := k.load(scope)
	if err != nil {
		return err
	}
	token, err := k.encrypt(value)
	if err != nil {
		return err
	}
	entries[variable] = token
	return k.save(path, entries)
}

// Get returns the value of variable in scope.
func (k *Keyring) Get(scope, variable string) (string, error) {
	entries, _, err := k.load(scope)
	if err != nil {
		return "", err
	}
	token, ok := entries[variable]
	if !ok {
		return "", apperror.Unexpected("no keyring entry '%s' in scope '%s'", variable, scope).
			WithDetail("scope", scope).
			WithDetail("variable", variable)
	}
	return k.decrypt(token)
}

// Exists reports whether variable is set in scope.
func (k *Keyring) Exists(scope, variable string) (bool, error) {
	entries, _, err := k.load(scope)
	if err != nil {
		return false, err
	}
	_, ok := entries[variable]
	return ok, nil
}

// Delete removes variable from scope. Deleting a missing entry is not an
// error; the result reports whether anything was removed.
func (k *Keyring) Delete(scope, variable string) (bool, error) {
	entries, path, err := k.load(scope)
	if err != nil {
		return false, err
	}
	if _, ok := entries[variable]; !ok {
		return false, nil
	}
	delete(entries, variable)
	return true, k.save(path, entries)
}

// Variables lists the variable names stored in scope.
func (k *Keyring) Variables(scope string) ([]string, error) {
	entries, _, err := k.load(scope)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for v := range entries {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}
