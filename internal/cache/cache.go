// Package cache stores fetched PR data and analysis results per
// (repository, PR number) so the second phase can run without refetching.
//
// Layout under the root:
//
//	<owner>__<name>/<number>/meta.json      PR metadata incl. headRefOid
//	<owner>__<name>/<number>/diff.json      parsed file diffs
//	<owner>__<name>/<number>/analysis.json  match snapshot, later scored results
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/model"
)

const (
	metaFile     = "meta.json"
	diffFile     = "diff.json"
	analysisFile = "analysis.json"
	repoSep      = "__"
)

// Analysis is the stored analysis facet. Phase 1 writes the heuristic
// snapshot; phase 2 adds the scored results.
type Analysis struct {
	ID         string                           `json:"id"`
	CreatedAt  time.Time                        `json:"createdAt"`
	Matched    map[string]*model.HeuristicMatch `json:"matched"`
	MatchOrder []string                         `json:"matchOrder"`
	Unmatched  []string                         `json:"unmatched"`
	Scored     []model.ScoredChange             `json:"scored,omitempty"`
}

// NewAnalysis returns a snapshot with a fresh id.
func NewAnalysis(matched map[string]*model.HeuristicMatch, order []string, unmatched []string) *Analysis {
	return &Analysis{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Matched:    matched,
		MatchOrder: order,
		Unmatched:  unmatched,
	}
}

// Matches returns the snapshot's heuristic matches in match order.
func (a *Analysis) Matches() []model.HeuristicMatch {
	out := make([]model.HeuristicMatch, 0, len(a.MatchOrder))
	for _, id := range a.MatchOrder {
		if m, ok := a.Matched[id]; ok {
			out = append(out, *m)
		}
	}
	return out
}

// Entry is one cached PR.
type Entry struct {
	Meta     model.PRMetadata
	Diff     []model.FileDiff
	Analysis *Analysis
}

// Key identifies a cached entry.
type Key struct {
	Repo   string
	Number int
}

func (k Key) String() string { return fmt.Sprintf("%s#%d", k.Repo, k.Number) }

// Store is a filesystem-backed cache.
type Store struct {
	root string
	fs   afero.Fs
}

// New returns a Store rooted at root. A nil fs uses the OS filesystem.
func New(root string, fs afero.Fs) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{root: root, fs: fs}
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// DefaultDir returns the platform-appropriate cache directory.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "prsift"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "prsift"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "prsift", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "prsift", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "prsift"), nil
	}
}

// Dir returns the directory of one entry.
func (s *Store) Dir(repo string, pr int) string {
	return filepath.Join(s.root, strings.ReplaceAll(repo, "/", repoSep), strconv.Itoa(pr))
}

// Get returns the entry for (repo, pr) if it exists, parses, and was taken
// at head commit sha. Any other state is a miss and returns nil.
func (s *Store) Get(repo string, pr int, sha string) *Entry {
	dir := s.Dir(repo, pr)

	var meta model.PRMetadata
	if err := s.readJSON(filepath.Join(dir, metaFile), &meta); err != nil {
		return nil
	}
	if meta.HeadRefOid != sha {
		return nil
	}
	var files []model.FileDiff
	if err := s.readJSON(filepath.Join(dir, diffFile), &files); err != nil {
		return nil
	}

	e := &Entry{Meta: meta, Diff: files}
	var a Analysis
	if err := s.readJSON(filepath.Join(dir, analysisFile), &a); err == nil {
		e.Analysis = &a
	}
	return e
}

// Read returns the entry for (repo, pr) regardless of head commit.
func (s *Store) Read(repo string, pr int) (*Entry, error) {
	dir := s.Dir(repo, pr)
	ctx := map[string]any{"repo": repo, "pr": pr, "dir": dir}

	if ok, _ := afero.DirExists(s.fs, dir); !ok {
		return nil, apperr.New(apperr.CacheMissing,
			fmt.Sprintf("no cached analysis for %s#%d; run phase 1 first", repo, pr), apperr.WithContext(ctx))
	}

	e := &Entry{}
	if err := s.readJSON(filepath.Join(dir, metaFile), &e.Meta); err != nil {
		return nil, corrupted(metaFile, err, ctx)
	}
	if err := s.readJSON(filepath.Join(dir, diffFile), &e.Diff); err != nil {
		return nil, corrupted(diffFile, err, ctx)
	}

	var a Analysis
	err := s.readJSON(filepath.Join(dir, analysisFile), &a)
	switch {
	case err == nil:
		e.Analysis = &a
	case !errors.Is(err, os.ErrNotExist):
		return nil, corrupted(analysisFile, err, ctx)
	}
	return e, nil
}

func corrupted(name string, err error, ctx map[string]any) error {
	return apperr.New(apperr.CacheCorrupted, "cannot read cached "+name, apperr.Wrap(err), apperr.WithContext(ctx))
}

// Save writes meta, diff and, when given, analysis for (repo, pr). meta.json
// is removed first and written last, so a reader sees either the previous
// complete entry, no entry, or the new complete entry.
func (s *Store) Save(repo string, pr int, meta model.PRMetadata, files []model.FileDiff, analysis *Analysis) error {
	dir := s.Dir(repo, pr)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := s.remove(filepath.Join(dir, metaFile)); err != nil {
		return err
	}

	if files == nil {
		files = []model.FileDiff{}
	}
	if err := s.writeJSON(filepath.Join(dir, diffFile), files); err != nil {
		return err
	}
	if analysis != nil {
		if err := s.writeJSON(filepath.Join(dir, analysisFile), analysis); err != nil {
			return err
		}
	} else if err := s.remove(filepath.Join(dir, analysisFile)); err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(dir, metaFile), meta)
}

// UpdateAnalysis replaces analysis.json of an existing entry.
func (s *Store) UpdateAnalysis(repo string, pr int, analysis *Analysis) error {
	dir := s.Dir(repo, pr)
	if ok, _ := afero.DirExists(s.fs, dir); !ok {
		return apperr.New(apperr.CacheMissing,
			fmt.Sprintf("cannot update analysis: no cache entry for %s#%d", repo, pr),
			apperr.WithContext(map[string]any{"dir": dir}))
	}
	return s.writeJSON(filepath.Join(dir, analysisFile), analysis)
}

// Invalidate deletes the entry. A missing entry is not an error.
func (s *Store) Invalidate(repo string, pr int) error {
	if err := s.fs.RemoveAll(s.Dir(repo, pr)); err != nil {
		return fmt.Errorf("removing cache entry: %w", err)
	}
	return nil
}

// List returns every cached entry, sorted by repo then number.
func (s *Store) List() ([]Key, error) {
	repos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}

	var keys []Key
	for _, r := range repos {
		if !r.IsDir() {
			continue
		}
		prs, err := afero.ReadDir(s.fs, filepath.Join(s.root, r.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading cache directory: %w", err)
		}
		for _, p := range prs {
			n, err := strconv.Atoi(p.Name())
			if err != nil || !p.IsDir() {
				continue
			}
			keys = append(keys, Key{Repo: strings.ReplaceAll(r.Name(), repoSep, "/"), Number: n})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Repo != keys[j].Repo {
			return keys[i].Repo < keys[j].Repo
		}
		return keys[i].Number < keys[j].Number
	})
	return keys, nil
}

func (s *Store) readJSON(path string, v any) error {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON writes through a temporary file and renames it into place.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) remove(path string) error {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", filepath.Base(path), err)
	}
	return nil
}
