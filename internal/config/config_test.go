package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/prsift/internal/apperr"
)

const projectRoot = "/home/dev/shop"

func newMemStore() (*Store, afero.Fs) {
	fs := afero.NewMemMapFs()
	return NewStore("/cfg", fs), fs
}

func TestEncodeProjectPath(t *testing.T) {
	assert.Equal(t, "home-dev-shop", EncodeProjectPath("/home/dev/shop"))
	assert.Equal(t, "home-dev-shop", EncodeProjectPath("/home/dev/shop/"))
	assert.Equal(t, "srv", EncodeProjectPath("/srv"))
}

func TestPath(t *testing.T) {
	s, _ := newMemStore()
	assert.Equal(t, filepath.Join("/cfg", "home-dev-shop", "config.json"), s.Path(projectRoot))
}

func TestLoadMissingReturnsDefaults(t *testing.T) {
	s, _ := newMemStore()
	cfg, err := s.Load(projectRoot)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 20.0, cfg.QueryCountThresholds.RelativePercent)
	assert.Equal(t, 10.0, cfg.QueryCountThresholds.AbsoluteDelta)
	assert.NotNil(t, cfg.BlessedPatterns)
}

func TestLoadMergesDefaults(t *testing.T) {
	s, fs := newMemStore()
	require.NoError(t, afero.WriteFile(fs, s.Path(projectRoot),
		[]byte(`{"blessed_patterns": ["auto-format"], "query_count_thresholds": {"absolute_delta": 3}}`), 0o644))

	cfg, err := s.Load(projectRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{"auto-format"}, cfg.BlessedPatterns)
	assert.Equal(t, []string{}, cfg.AlwaysReviewPaths)
	assert.Equal(t, 3.0, cfg.QueryCountThresholds.AbsoluteDelta)
	assert.Equal(t, 20.0, cfg.QueryCountThresholds.RelativePercent)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"blessed_patterns": [`},
		{name: "bad blessed id", body: `{"blessed_patterns": ["Bad_ID"]}`},
		{name: "negative threshold", body: `{"query_count_thresholds": {"relative_percent": -1}}`},
		{name: "custom pattern without matcher", body: `{"custom_patterns": [{"id": "x-rule", "priority": "high", "confidence": 90}]}`},
		{name: "custom pattern bad priority", body: `{"custom_patterns": [{"id": "x-rule", "priority": "low", "match_file": "x"}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, fs := newMemStore()
			require.NoError(t, afero.WriteFile(fs, s.Path(projectRoot), []byte(tc.body), 0o644))

			_, err := s.Load(projectRoot)
			require.Error(t, err)
			assert.Equal(t, apperr.ConfigInvalid, apperr.CodeOf(err))
		})
	}
}

func TestSaveWritesIndentedJSON(t *testing.T) {
	s, fs := newMemStore()
	cfg := Default()
	cfg.AlwaysReviewPaths = []string{"billing/"}
	require.NoError(t, s.Save(projectRoot, cfg))

	data, err := afero.ReadFile(fs, s.Path(projectRoot))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"always_review_paths\": [\n    \"billing/\"\n  ]")
	assert.True(t, strings.HasSuffix(string(data), "}\n"))

	back, err := s.Load(projectRoot)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestBlessPatternIdempotent(t *testing.T) {
	s, _ := newMemStore()

	_, err := s.BlessPattern(projectRoot, "auto-format")
	require.NoError(t, err)
	_, err = s.BlessPattern(projectRoot, "lockfile-bump")
	require.NoError(t, err)
	cfg, err := s.BlessPattern(projectRoot, "auto-format")
	require.NoError(t, err)

	assert.Equal(t, []string{"auto-format", "lockfile-bump"}, cfg.BlessedPatterns)
}

func TestUnblessPattern(t *testing.T) {
	s, _ := newMemStore()
	_, err := s.BlessPattern(projectRoot, "auto-format")
	require.NoError(t, err)

	cfg, removed, err := s.UnblessPattern(projectRoot, "auto-format")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, cfg.BlessedPatterns)

	_, removed, err = s.UnblessPattern(projectRoot, "never-blessed")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestValidatePatternID(t *testing.T) {
	testCases := []struct {
		id      string
		valid   bool
		mention string
	}{
		{id: "query-count-json", valid: true},
		{id: "ab", valid: true},
		{id: "a1-b2", valid: true},
		{id: "a", mention: "between 2 and 50"},
		{id: strings.Repeat("a", 51), mention: "between 2 and 50"},
		{id: "My-Pattern", mention: "lowercase"},
		{id: "has space", mention: "lowercase"},
		{id: "_builtin-x", mention: "reserved"},
		{id: "1abc", mention: "start with"},
		{id: "-abc", mention: "start with"},
		{id: "abc-", mention: "end with"},
		{id: "ab--c", mention: "consecutive"},
	}

	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			v := ValidatePatternID(tc.id)
			assert.Equal(t, tc.valid, v.Valid)
			if tc.valid {
				assert.Empty(t, v.Error)
				return
			}
			assert.Contains(t, v.Error, tc.mention)
		})
	}
}

func TestBless(t *testing.T) {
	s, fs := newMemStore()

	res, err := Bless(s, projectRoot, "Bad")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "lowercase")
	exists, _ := afero.Exists(fs, s.Path(projectRoot))
	assert.False(t, exists, "invalid id must not create the config file")

	res, err = Bless(s, projectRoot, "auto-format")
	require.NoError(t, err)
	require.True(t, res.Valid)
	assert.False(t, res.AlreadyBlessed)
	assert.Equal(t, []string{"auto-format"}, res.Config.BlessedPatterns)

	res, err = Bless(s, projectRoot, "auto-format")
	require.NoError(t, err)
	assert.True(t, res.AlreadyBlessed)
	assert.Equal(t, []string{"auto-format"}, res.Config.BlessedPatterns)
}

func TestBlessPropagatesStoreErrors(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	s := NewStore("/cfg", fs)

	_, err := Bless(s, projectRoot, "auto-format")
	require.Error(t, err)
	assert.Equal(t, "creating config directory", strings.SplitN(err.Error(), ":", 2)[0])
}
