// Package github fetches pull request metadata and diffs from GitHub and
// parses the ways users name a pull request.
package github

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sprite-ai/prsift/internal/apperr"
)

// Identifier names a pull request.
type Identifier struct {
	Owner  string `json:"owner"`
	Name   string `json:"name"`
	Number int    `json:"number"`
}

// Repo returns "owner/name".
func (id Identifier) Repo() string {
	return id.Owner + "/" + id.Name
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s#%d", id.Repo(), id.Number)
}

var (
	repoPart  = `[A-Za-z0-9][A-Za-z0-9-]*/[A-Za-z0-9._-]+`
	shortForm = regexp.MustCompile(`^(` + repoPart + `)#(\d+)$`)
	repoForm  = regexp.MustCompile(`^` + repoPart + `$`)
	pullPath  = regexp.MustCompile(`^/(` + repoPart + `)/pull/(\d+)(?:/.*)?$`)
)

// ParseIdentifier accepts a bare PR number (resolved against defaultRepo),
// "owner/repo#N", or a github.com pull request URL. Anything else is
// GH_INVALID_IDENTIFIER.
func ParseIdentifier(input, defaultRepo string) (Identifier, error) {
	s := strings.TrimSpace(input)

	if n, err := strconv.Atoi(strings.TrimPrefix(s, "#")); err == nil && s != "" {
		if n <= 0 {
			return Identifier{}, invalidIdentifier(input, "pull request number must be positive")
		}
		if defaultRepo == "" {
			return Identifier{}, invalidIdentifier(input, "bare number needs a repository; pass --repo or run inside a GitHub clone")
		}
		if !repoForm.MatchString(defaultRepo) {
			return Identifier{}, invalidIdentifier(defaultRepo, "repository must look like owner/name")
		}
		return build(defaultRepo, n), nil
	}

	if m := shortForm.FindStringSubmatch(s); m != nil {
		return fromMatch(input, m[1], m[2])
	}

	if u, err := url.Parse(s); err == nil && (u.Scheme == "https" || u.Scheme == "http") {
		if !strings.EqualFold(u.Host, "github.com") && !strings.EqualFold(u.Host, "www.github.com") {
			return Identifier{}, invalidIdentifier(input, "only github.com pull request URLs are supported")
		}
		if m := pullPath.FindStringSubmatch(u.Path); m != nil {
			return fromMatch(input, m[1], m[2])
		}
	}

	return Identifier{}, invalidIdentifier(input, "expected a PR number, owner/repo#N, or a pull request URL")
}

func fromMatch(input, repo, num string) (Identifier, error) {
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return Identifier{}, invalidIdentifier(input, "pull request number must be positive")
	}
	return build(repo, n), nil
}

func build(repo string, n int) Identifier {
	owner, name, _ := strings.Cut(repo, "/")
	return Identifier{Owner: owner, Name: name, Number: n}
}

func invalidIdentifier(input, reason string) error {
	return apperr.New(apperr.GHInvalidIdentifier, fmt.Sprintf("invalid pull request %q: %s", input, reason),
		apperr.WithContext(map[string]any{"input": input}))
}

var remoteForm = regexp.MustCompile(`github\.com[:/](` + repoPart + `?)(?:\.git)?/?$`)

// RepoFromRemote extracts "owner/name" from a GitHub remote URL in SSH or
// HTTPS form.
func RepoFromRemote(remote string) (string, bool) {
	m := remoteForm.FindStringSubmatch(strings.TrimSpace(remote))
	if m == nil {
		return "", false
	}
	return strings.TrimSuffix(m[1], ".git"), true
}
