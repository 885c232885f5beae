package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultWorkspace is the accounts file used when --config is not given.
const DefaultWorkspace = "default"

var (
	// ErrAccountExists is returned when adding a user that is already configured.
	ErrAccountExists = errors.New("account already configured")
	// ErrAccountNotFound is returned when removing an unknown user.
	ErrAccountNotFound = errors.New("account not configured")
)

// Workspace is an accounts file mapping BaseSpace user ids to access tokens.
type Workspace struct {
	ConfigFile string
}

// NewWorkspace opens the default accounts file, creating it when missing.
func NewWorkspace() (*Workspace, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	configFile := filepath.Join(dir, DefaultWorkspace+".toml")
	if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(configFile, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return &Workspace{ConfigFile: configFile}, nil
}

// WorkspaceWithConfig opens an alternate accounts file stored as <dir>/<name>.toml.
// Unlike the default file it must already exist.
func WorkspaceWithConfig(name string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("config name is required")
	}
	if strings.Contains(name, ".toml") {
		return nil, errors.New("When providing an alternative config file, do not include the .toml extension")
	}
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("config name %q must not contain path separators", name)
	}

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	configFile := filepath.Join(dir, name+".toml")
	info, err := os.Stat(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s does not exist.", configFile)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", configFile)
	}

	return &Workspace{ConfigFile: configFile}, nil
}

// OpenWorkspace picks the default or a named accounts file.
func OpenWorkspace(name string) (*Workspace, error) {
	if strings.TrimSpace(name) == "" {
		return NewWorkspace()
	}
	return WorkspaceWithConfig(name)
}

// Accounts returns user id -> token.
func (w *Workspace) Accounts() (map[string]string, error) {
	accounts := map[string]string{}
	if _, err := toml.DecodeFile(w.ConfigFile, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", w.ConfigFile, err)
	}
	return accounts, nil
}

// RequireAccounts is Accounts but fails when the file holds no tokens.
func (w *Workspace) RequireAccounts() (map[string]string, error) {
	accounts, err := w.Accounts()
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%s is empty. Please add token(s).", w.ConfigFile)
	}
	return accounts, nil
}

// UserIDs returns the configured user ids in sorted order.
func (w *Workspace) UserIDs() ([]string, error) {
	accounts, err := w.Accounts()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accounts))
	for id := range accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// AddAccount stores a token for userID.
func (w *Workspace) AddAccount(userID, token string) error {
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return fmt.Errorf("user id and token are required")
	}

	accounts, err := w.Accounts()
	if err != nil {
		return err
	}
	if _, ok := accounts[userID]; ok {
		return fmt.Errorf("user %s: %w", userID, ErrAccountExists)
	}
	accounts[userID] = token
	return w.write(accounts)
}

// RemoveAccount drops the token stored for userID.
func (w *Workspace) RemoveAccount(userID string) error {
	accounts, err := w.Accounts()
	if err != nil {
		return err
	}
	if _, ok := accounts[userID]; !ok {
		return fmt.Errorf("user %s: %w", userID, ErrAccountNotFound)
	}
	delete(accounts, userID)
	return w.write(accounts)
}

// write replaces the accounts file atomically; tokens stay owner-readable only.
func (w *Workspace) write(accounts map[string]string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(accounts); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.ConfigFile), ".accounts-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, w.ConfigFile); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
