package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v71/github"

	"github.com/sprite-ai/prsift/internal/apperr"
	"github.com/sprite-ai/prsift/internal/model"
)

const filesPerPage = 100

// Options configures a Client.
type Options struct {
	Token string
	// BaseURL overrides the REST endpoint, for GitHub Enterprise or tests.
	BaseURL    string
	HTTPClient *http.Client
	Retry      apperr.RetryOptions
	Log        *slog.Logger
}

// Client fetches pull requests through the GitHub REST API.
type Client struct {
	gh    *gh.Client
	retry apperr.RetryOptions
	log   *slog.Logger
}

// NewClient builds a Client. Without a token only public repositories are
// reachable.
func NewClient(opts Options) (*Client, error) {
	c := gh.NewClient(opts.HTTPClient)
	if opts.Token != "" {
		c = c.WithAuthToken(opts.Token)
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing GitHub API URL: %w", err)
		}
		c.BaseURL = u
	}

	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	retry := opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, delay time.Duration, err error) {
			log.Warn("retrying GitHub request",
				slog.String("op", "github.FetchPR"),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", err.Error()),
			)
		}
	}
	return &Client{gh: c, retry: retry, log: log}, nil
}

// FetchPR returns the pull request's metadata and its unified diff.
func (c *Client) FetchPR(ctx context.Context, id Identifier) (model.PRMetadata, string, error) {
	pr, err := apperr.WithRetry(c.retry, func(ctx context.Context) (*gh.PullRequest, error) {
		pr, _, err := c.gh.PullRequests.Get(ctx, id.Owner, id.Name, id.Number)
		return pr, classify(err, id)
	})(ctx)
	if err != nil {
		return model.PRMetadata{}, "", err
	}

	raw, err := apperr.WithRetry(c.retry, func(ctx context.Context) (string, error) {
		raw, _, err := c.gh.PullRequests.GetRaw(ctx, id.Owner, id.Name, id.Number, gh.RawOptions{Type: gh.Diff})
		return raw, classify(err, id)
	})(ctx)
	if err != nil {
		return model.PRMetadata{}, "", err
	}

	files, err := c.listFiles(ctx, id)
	if err != nil {
		return model.PRMetadata{}, "", err
	}

	meta := model.PRMetadata{
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		Body:        pr.Body,
		HeadRefOid:  pr.GetHead().GetSHA(),
		BaseRefName: pr.GetBase().GetRef(),
		Additions:   pr.GetAdditions(),
		Deletions:   pr.GetDeletions(),
		Files:       files,
	}
	c.log.Debug("fetched pull request",
		slog.String("op", "github.FetchPR"),
		slog.String("pr", id.String()),
		slog.String("head", meta.HeadRefOid),
		slog.Int("files", len(files)),
	)
	return meta, raw, nil
}

func (c *Client) listFiles(ctx context.Context, id Identifier) ([]model.PRFile, error) {
	files := []model.PRFile{}
	opts := &gh.ListOptions{PerPage: filesPerPage}
	for {
		page, err := apperr.WithRetry(c.retry, func(ctx context.Context) (filesPage, error) {
			fs, resp, err := c.gh.PullRequests.ListFiles(ctx, id.Owner, id.Name, id.Number, opts)
			if err != nil {
				return filesPage{}, classify(err, id)
			}
			return filesPage{files: fs, next: resp.NextPage}, nil
		})(ctx)
		if err != nil {
			return nil, err
		}
		for _, f := range page.files {
			files = append(files, model.PRFile{
				Path:      f.GetFilename(),
				Additions: f.GetAdditions(),
				Deletions: f.GetDeletions(),
			})
		}
		if page.next == 0 {
			return files, nil
		}
		opts.Page = page.next
	}
}

type filesPage struct {
	files []*gh.CommitFile
	next  int
}

// classify maps a go-github error onto the GH_* codes.
func classify(err error, id Identifier) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	ctx := apperr.WithContext(map[string]any{"pr": id.String()})

	var rate *gh.RateLimitError
	if errors.As(err, &rate) {
		return apperr.New(apperr.GHRateLimit,
			fmt.Sprintf("GitHub rate limit exceeded; resets at %s", rate.Rate.Reset.Format(time.RFC3339)),
			ctx, apperr.Wrap(err))
	}
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return apperr.New(apperr.GHRateLimit, "GitHub secondary rate limit exceeded", ctx, apperr.Wrap(err))
	}

	var resp *gh.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		switch code := resp.Response.StatusCode; {
		case code == http.StatusNotFound:
			return apperr.New(apperr.GHNotFound, fmt.Sprintf("pull request %s not found", id), ctx, apperr.Wrap(err))
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return apperr.New(apperr.GHAuthRequired, "GitHub authentication required; set GITHUB_TOKEN", ctx, apperr.Wrap(err))
		case code == http.StatusTooManyRequests:
			return apperr.New(apperr.GHRateLimit, "GitHub rate limit exceeded", ctx, apperr.Wrap(err))
		case code >= http.StatusInternalServerError:
			return apperr.New(apperr.GHNetwork, fmt.Sprintf("GitHub returned %d", code), ctx, apperr.Wrap(err))
		default:
			return apperr.New(apperr.GHAPIError, fmt.Sprintf("GitHub API error %d: %s", code, resp.Message), ctx, apperr.Wrap(err))
		}
	}

	var uerr *url.Error
	var nerr net.Error
	if errors.As(err, &uerr) || errors.As(err, &nerr) {
		return apperr.New(apperr.GHNetwork, "could not reach GitHub", ctx, apperr.Wrap(err))
	}
	return apperr.New(apperr.GHAPIError, "GitHub request failed", ctx, apperr.Wrap(err))
}
