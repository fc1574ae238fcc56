package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/prsift/internal/apperr"
)

func TestParseIdentifier(t *testing.T) {
	testCases := []struct {
		name        string
		input       string
		defaultRepo string
		want        Identifier
		wantErr     bool
	}{
		{name: "bare number", input: "42", defaultRepo: "acme/shop", want: Identifier{"acme", "shop", 42}},
		{name: "hash number", input: "#42", defaultRepo: "acme/shop", want: Identifier{"acme", "shop", 42}},
		{name: "short form", input: "acme/shop#7", want: Identifier{"acme", "shop", 7}},
		{name: "short form ignores default", input: "x/y.go#3", defaultRepo: "acme/shop", want: Identifier{"x", "y.go", 3}},
		{name: "url", input: "https://github.com/acme/shop/pull/99", want: Identifier{"acme", "shop", 99}},
		{name: "url with tab", input: "https://github.com/acme/shop/pull/99/files", want: Identifier{"acme", "shop", 99}},
		{name: "bare number without repo", input: "42", wantErr: true},
		{name: "zero", input: "0", defaultRepo: "acme/shop", wantErr: true},
		{name: "issue url", input: "https://github.com/acme/shop/issues/1", wantErr: true},
		{name: "other host", input: "https://gitlab.com/acme/shop/pull/1", wantErr: true},
		{name: "garbage", input: "not a pr", wantErr: true},
		{name: "empty", input: "", defaultRepo: "acme/shop", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseIdentifier(tc.input, tc.defaultRepo)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.GHInvalidIdentifier, apperr.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIdentifierString(t *testing.T) {
	id := Identifier{Owner: "acme", Name: "shop", Number: 5}
	assert.Equal(t, "acme/shop", id.Repo())
	assert.Equal(t, "acme/shop#5", id.String())
}

func TestRepoFromRemote(t *testing.T) {
	testCases := []struct {
		remote string
		want   string
		ok     bool
	}{
		{"git@github.com:acme/shop.git", "acme/shop", true},
		{"https://github.com/acme/shop.git", "acme/shop", true},
		{"https://github.com/acme/shop", "acme/shop", true},
		{"ssh://git@github.com/acme/shop.git\n", "acme/shop", true},
		{"git@gitlab.com:acme/shop.git", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.remote, func(t *testing.T) {
			got, ok := RepoFromRemote(tc.remote)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
