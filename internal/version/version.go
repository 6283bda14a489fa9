// Package version holds the build information of the connector binary and
// checks GitHub for newer releases.
package version

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Build information, set at link time:
//
//	-ldflags "-X github.com/mrz1836/connector/internal/version.Version=v1.2.3"
//
//nolint:gochecknoglobals // Set by the linker
var (
	Version   = ""
	Commit    = ""
	BuildDate = ""
)

// Repository coordinates used by release checks.
const (
	Owner = "mrz1836"
	Repo  = "connector"
)

// Default configuration constants
const (
	DefaultBaseURL   = "https://api.github.com"
	DefaultTimeout   = 30 * time.Second
	maxErrorBodySize = 1024

	devVersion = "dev"
	unknown    = "unknown"
)

// Errors returned by this package
var (
	ErrGitHubAPIFailed  = errors.New("GitHub API request failed")
	ErrInvalidOwner     = errors.New("owner cannot be empty")
	ErrInvalidRepo      = errors.New("repo cannot be empty")
	ErrInvalidOwnerRepo = errors.New("owner/repo contains invalid characters")
)

var validOwnerRepoPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Build describes the running binary.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

// Current returns the build information of the running binary.
func Current() Build {
	b := Build{Version: Version, Commit: Commit, Date: BuildDate, Go: runtime.Version()}
	if b.Version == "" {
		b.Version = devVersion
	}
	if b.Commit == "" {
		b.Commit = unknown
	}
	if b.Date == "" {
		b.Date = unknown
	}
	return b
}

// String renders the build as "v1.2.3 (commit: abc1234, built: 2026-01-02)".
func (b Build) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", b.Version, b.Commit, b.Date)
}

// GitHubRelease represents a GitHub release
type GitHubRelease struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

// Info is the outcome of a release check.
type Info struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
	IsNewer bool   `json:"isNewer"`
	URL     string `json:"url,omitempty"`
}

// Client fetches releases from the GitHub API.
type Client struct {
	http *resty.Client
}

type clientOptions struct {
	baseURL   string
	timeout   time.Duration
	userAgent string
}

// Option configures a Client
type Option func(*clientOptions)

// WithBaseURL sets a custom base URL for the GitHub API
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithTimeout sets the request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithUserAgent sets a custom user agent string
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		o.userAgent = userAgent
	}
}

// NewClient creates a new Client with the given options
func NewClient(opts ...Option) *Client {
	o := clientOptions{
		baseURL:   DefaultBaseURL,
		timeout:   DefaultTimeout,
		userAgent: fmt.Sprintf("connector/%s (%s/%s)", Current().Version, runtime.GOOS, runtime.GOARCH),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		http: resty.New().
			SetBaseURL(o.baseURL).
			SetTimeout(o.timeout).
			SetHeader("User-Agent", o.userAgent).
			SetHeader("Accept", "application/vnd.github.v3+json"),
	}
}

func validateOwnerRepo(owner, repo string) error {
	if owner == "" {
		return ErrInvalidOwner
	}
	if repo == "" {
		return ErrInvalidRepo
	}
	if !validOwnerRepoPattern.MatchString(owner) || !validOwnerRepoPattern.MatchString(repo) {
		return ErrInvalidOwnerRepo
	}
	return nil
}

// GetLatestRelease fetches the latest release from GitHub
func (c *Client) GetLatestRelease(ctx context.Context, owner, repo string) (*GitHubRelease, error) {
	if err := validateOwnerRepo(owner, repo); err != nil {
		return nil, err
	}

	var release GitHubRelease
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"owner": owner, "repo": repo}).
		SetResult(&release).
		ForceContentType("application/json").
		Get("/repos/{owner}/{repo}/releases/latest")
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		body := resp.Body()
		if len(body) > maxErrorBodySize {
			body = body[:maxErrorBodySize]
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrGitHubAPIFailed, resp.StatusCode(), string(body))
	}
	return &release, nil
}

// Check compares current against the latest connector release.
func (c *Client) Check(ctx context.Context, current string) (*Info, error) {
	release, err := c.GetLatestRelease(ctx, Owner, Repo)
	if err != nil {
		return nil, err
	}
	return &Info{
		Current: current,
		Latest:  NormalizeVersion(release.TagName),
		IsNewer: IsNewerVersion(current, release.TagName),
		URL:     release.HTMLURL,
	}, nil
}

// CompareVersions compares two version strings
// Returns:
//   - 1 if v1 > v2
//   - 0 if v1 == v2
//   - -1 if v1 < v2
//
// Development builds and commit hashes sort before every release.
func CompareVersions(v1, v2 string) int {
	v1 = strings.TrimPrefix(v1, "v")
	v2 = strings.TrimPrefix(v2, "v")

	isV1Dev := v1 == devVersion || v1 == "" || isCommitHash(v1)
	isV2Dev := v2 == devVersion || v2 == "" || isCommitHash(v2)
	switch {
	case isV1Dev && isV2Dev:
		return 0
	case isV1Dev:
		return -1
	case isV2Dev:
		return 1
	}

	parts1 := parseVersion(v1)
	parts2 := parseVersion(v2)
	for i := 0; i < 3; i++ {
		a, b := part(parts1, i), part(parts2, i)
		if a > b {
			return 1
		}
		if a < b {
			return -1
		}
	}
	return 0
}

func part(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

// parseVersion parses a version string into major, minor, patch integers,
// dropping suffixes like -rc1 or +build.
func parseVersion(version string) []int {
	if idx := strings.IndexAny(version, "-+"); idx != -1 {
		version = version[:idx]
	}

	parts := strings.Split(version, ".")
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		var num int
		if _, err := fmt.Sscanf(p, "%d", &num); err == nil {
			result = append(result, num)
		}
	}
	return result
}

// IsNewerVersion checks if latestVersion is newer than currentVersion
func IsNewerVersion(currentVersion, latestVersion string) bool {
	return CompareVersions(latestVersion, currentVersion) > 0
}

// NormalizeVersion strips whitespace, leading 'v' characters and any
// pre-release or build suffix.
func NormalizeVersion(version string) string {
	if idx := strings.IndexAny(version, "-+"); idx != -1 {
		version = version[:idx]
	}
	return strings.TrimLeft(strings.TrimSpace(version), "v")
}

// isCommitHash reports whether s looks like a 7 to 40 character git hash.
// At least one hex letter is required so "2024010100" is not a hash.
func isCommitHash(s string) bool {
	s = strings.TrimSuffix(s, "-dirty")
	if len(s) < 7 || len(s) > 40 {
		return false
	}

	hasLetter := false
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F'):
			hasLetter = true
		default:
			return false
		}
	}
	return hasLetter
}
