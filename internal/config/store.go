package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/sprite-ai/prsift/internal/apperr"
)

// FileName is the config document inside each project directory.
const FileName = "config.json"

// Store reads and writes project configs under a base directory.
type Store struct {
	base string
	fs   afero.Fs
}

// NewStore returns a Store rooted at baseDir. A nil fs uses the OS filesystem.
func NewStore(baseDir string, fs afero.Fs) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{base: baseDir, fs: fs}
}

// DefaultBaseDir returns the platform-appropriate projects directory.
func DefaultBaseDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "prsift", "projects"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "prsift", "projects"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "prsift", "projects"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "prsift", "projects"), nil
	default:
		return filepath.Join(home, ".config", "prsift", "projects"), nil
	}
}

// EncodeProjectPath turns an absolute project root into a single directory
// name: separators become hyphens and the leading separator is dropped.
func EncodeProjectPath(root string) string {
	root = filepath.ToSlash(filepath.Clean(root))
	root = strings.TrimPrefix(root, "/")
	return strings.ReplaceAll(root, "/", "-")
}

// Path returns the config file location for projectRoot.
func (s *Store) Path(projectRoot string) string {
	if abs, err := filepath.Abs(projectRoot); err == nil {
		projectRoot = abs
	}
	return filepath.Join(s.base, EncodeProjectPath(projectRoot), FileName)
}

// Load returns the project's config. A missing file yields Default(); a
// present one is merged over the defaults so absent keys keep their default
// values. Unparsable or invalid documents fail with CONFIG_INVALID.
func (s *Store) Load(projectRoot string) (Config, error) {
	path := s.Path(projectRoot)
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		if e, ok := apperr.As(err); ok {
			apperr.WithContext(map[string]any{"path": path})(e)
		}
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a config document over the defaults and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, apperr.New(apperr.ConfigInvalid, "config file is not valid JSON", apperr.Wrap(err))
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, apperr.New(apperr.ConfigInvalid, "config file failed validation", apperr.Wrap(err))
	}
	return cfg, nil
}

// Save writes cfg as indented JSON, creating parent directories.
func (s *Store) Save(projectRoot string, cfg Config) error {
	cfg.normalize()
	path := s.Path(projectRoot)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return afero.WriteFile(s.fs, path, append(data, '\n'), 0o644)
}

// BlessPattern appends id to blessed_patterns unless already present and
// returns the saved config. It does not validate id; see Bless.
func (s *Store) BlessPattern(projectRoot, id string) (Config, error) {
	cfg, err := s.Load(projectRoot)
	if err != nil {
		return Config{}, err
	}
	if !cfg.IsBlessed(id) {
		cfg.BlessedPatterns = append(cfg.BlessedPatterns, id)
	}
	if err := s.Save(projectRoot, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// UnblessPattern removes id from blessed_patterns. Removing an id that is
// not blessed leaves the file unchanged.
func (s *Store) UnblessPattern(projectRoot, id string) (Config, bool, error) {
	cfg, err := s.Load(projectRoot)
	if err != nil {
		return Config{}, false, err
	}
	i := slices.Index(cfg.BlessedPatterns, id)
	if i < 0 {
		return cfg, false, nil
	}
	cfg.BlessedPatterns = slices.Delete(cfg.BlessedPatterns, i, i+1)
	if err := s.Save(projectRoot, cfg); err != nil {
		return Config{}, false, err
	}
	return cfg, true, nil
}
