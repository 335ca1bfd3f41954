// Package credentials persists the portal login written by `--user/--password`.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"attendance-agent/pkg/apperr"

	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("credentials file not found")

type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Save(creds Credentials) error {
	const op = "credentials.Save"

	if creds.Username == "" || creds.Password == "" {
		return apperr.InvalidReqError(op, "credentials", errors.New("username and password are both required"))
	}

	data, err := yaml.Marshal(&creds)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageStorage,
		})
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "mkdir_failed",
				apperr.MetaStage:  apperr.StageStorage,
			})
		}
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "write_failed",
			apperr.MetaStage:  apperr.StageStorage,
		})
	}

	// WriteFile keeps the mode of an existing file.
	return os.Chmod(s.path, 0o600)
}

func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	return &creds, nil
}
