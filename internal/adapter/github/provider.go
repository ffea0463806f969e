// Package github serves repository content through the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"repolens/config"
	"repolens/internal/adapter/filter"
	"repolens/internal/port"
)

type Provider struct {
	client   *github.Client
	limiter  *rate.Limiter
	excluder *filter.PathExcluder
	logger   *slog.Logger
}

// NewProvider builds a provider authenticated with token. An empty token
// makes anonymous requests.
func NewProvider(cfg config.GitHubConfig, token string, excluder *filter.PathExcluder, logger *slog.Logger) (*Provider, error) {
	httpClient := newHTTPClient(cfg.Timeout)

	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
	}

	client, err := createClient(httpClient, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return newProvider(client, rate.NewLimiter(limit, burst), excluder, logger), nil
}

func newProvider(client *github.Client, limiter *rate.Limiter, excluder *filter.PathExcluder, logger *slog.Logger) *Provider {
	if excluder == nil {
		excluder = filter.NewPathExcluder(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		client:   client,
		limiter:  limiter,
		excluder: excluder,
		logger:   logger,
	}
}

// NewFactory returns a factory that binds providers to the caller's
// credential, or to the configured token when the caller has none.
func NewFactory(cfg config.GitHubConfig, defaultToken string, excluder *filter.PathExcluder, logger *slog.Logger) port.ProviderFactory {
	return func(credential string) (port.ContentProvider, error) {
		if credential == "" {
			credential = defaultToken
		}
		return NewProvider(cfg, credential, excluder, logger)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}

// createClient targets github.com unless baseURL names an Enterprise host.
func createClient(httpClient *http.Client, baseURL string) (*github.Client, error) {
	if baseURL == "" || baseURL == "https://github.com" || baseURL == "https://api.github.com" {
		return github.NewClient(httpClient), nil
	}

	client, err := github.NewClient(httpClient).WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub Enterprise client: %w", err)
	}
	return client, nil
}

// ListFiles returns every blob of the branch tree that survives the
// listing excludes.
func (p *Provider) ListFiles(ctx context.Context, owner, repo, branch string) ([]string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tree, _, err := p.client.Git.GetTree(ctx, owner, repo, branch, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository tree: %w", err)
	}
	if tree.GetTruncated() {
		p.logger.Warn("repository tree truncated by the API, listing is incomplete",
			"repo", owner+"/"+repo, "entries", len(tree.Entries))
	}

	var files []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" || entry.GetPath() == "" {
			continue
		}
		if p.excluder.Exclude(entry.GetPath()) {
			continue
		}
		files = append(files, entry.GetPath())
	}
	return files, nil
}

func (p *Provider) GetFileContent(ctx context.Context, owner, repo, path, branch string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	file, _, resp, err := p.client.Repositories.GetContents(ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: branch})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%s: %w", path, port.ErrFileNotFound)
		}
		return "", fmt.Errorf("failed to get %s: %w", path, err)
	}

	// directories come back as a listing, symlinks and submodules carry no text
	if file == nil || file.GetType() != "file" {
		return "", fmt.Errorf("%s: %w", path, port.ErrFileNotFound)
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return content, nil
}

var _ port.ContentProvider = (*Provider)(nil)
