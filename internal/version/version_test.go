package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/owner/repo/releases/latest", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "connector")
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCurrent(t *testing.T) {
	t.Parallel()

	b := Current()
	assert.NotEmpty(t, b.Version)
	assert.NotEmpty(t, b.Commit)
	assert.NotEmpty(t, b.Date)
	assert.True(t, strings.HasPrefix(b.Go, "go"))
}

func TestBuild_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build Build
		want  string
	}{
		{
			name:  "all fields populated",
			build: Build{Version: "v1.2.3", Commit: "abc1234", Date: "2026-01-15"},
			want:  "v1.2.3 (commit: abc1234, built: 2026-01-15)",
		},
		{
			name:  "defaults",
			build: Build{Version: devVersion, Commit: unknown, Date: unknown},
			want:  "dev (commit: unknown, built: unknown)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.build.String())
		})
	}
}

func TestValidateOwnerRepo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		owner string
		repo  string
		want  error
	}{
		{name: "Valid", owner: "mrz1836", repo: "connector"},
		{name: "DotsAndDashes", owner: "my-org", repo: "repo.name_v2"},
		{name: "EmptyOwner", owner: "", repo: "repo", want: ErrInvalidOwner},
		{name: "EmptyRepo", owner: "owner", repo: "", want: ErrInvalidRepo},
		{name: "PathTraversal", owner: "..", repo: "repo", want: ErrInvalidOwnerRepo},
		{name: "Slash", owner: "owner", repo: "a/b", want: ErrInvalidOwnerRepo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateOwnerRepo(tt.owner, tt.repo)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClientGetLatestRelease(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		want          *GitHubRelease
		errorContains string
	}{
		{
			name:   "ValidRelease",
			status: http.StatusOK,
			body: `{
				"tag_name": "v1.2.3",
				"name": "Release v1.2.3",
				"published_at": "2026-01-01T12:00:00Z",
				"html_url": "https://github.com/owner/repo/releases/tag/v1.2.3"
			}`,
			want: &GitHubRelease{
				TagName:     "v1.2.3",
				Name:        "Release v1.2.3",
				PublishedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
				HTMLURL:     "https://github.com/owner/repo/releases/tag/v1.2.3",
			},
		},
		{
			name:          "NotFound",
			status:        http.StatusNotFound,
			body:          `{"message": "Not Found"}`,
			errorContains: "GitHub API request failed",
		},
		{
			name:          "RateLimited",
			status:        http.StatusForbidden,
			body:          `{"message": "API rate limit exceeded"}`,
			errorContains: "status 403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := releaseServer(t, tt.status, tt.body)
			client := NewClient(WithBaseURL(server.URL + "/"))

			release, err := client.GetLatestRelease(context.Background(), "owner", "repo")
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				assert.Nil(t, release)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, release)
		})
	}
}

func TestClientGetLatestRelease_ErrorBodyLimit(t *testing.T) {
	t.Parallel()
	server := releaseServer(t, http.StatusInternalServerError, strings.Repeat("x", 4*maxErrorBodySize))

	_, err := NewClient(WithBaseURL(server.URL)).GetLatestRelease(context.Background(), "owner", "repo")
	require.ErrorIs(t, err, ErrGitHubAPIFailed)
	assert.Less(t, len(err.Error()), 2*maxErrorBodySize)
}

func TestClientGetLatestRelease_Canceled(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(WithBaseURL(server.URL), WithTimeout(time.Second)).GetLatestRelease(ctx, "owner", "repo")
	require.Error(t, err)
}

func TestClientCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current string
		newer   bool
	}{
		{name: "Outdated", current: "v1.2.2", newer: true},
		{name: "UpToDate", current: "v1.2.3", newer: false},
		{name: "DevBuild", current: "dev", newer: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/mrz1836/connector/releases/latest", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"tag_name":"v1.2.3","html_url":"https://example.com/r"}`))
			}))
			defer server.Close()

			info, err := NewClient(WithBaseURL(server.URL)).Check(context.Background(), tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.current, info.Current)
			assert.Equal(t, "1.2.3", info.Latest)
			assert.Equal(t, tt.newer, info.IsNewer)
			assert.Equal(t, "https://example.com/r", info.URL)
		})
	}
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		v1       string
		v2       string
		expected int
	}{
		{name: "V1Greater", v1: "1.2.3", v2: "1.2.2", expected: 1},
		{name: "V2Greater", v1: "1.2.2", v2: "1.2.3", expected: -1},
		{name: "Equal", v1: "1.2.3", v2: "1.2.3", expected: 0},
		{name: "MajorVersionDifference", v1: "2.0.0", v2: "1.9.9", expected: 1},
		{name: "WithVPrefix", v1: "v1.2.3", v2: "v1.2.2", expected: 1},
		{name: "MixedVPrefix", v1: "v1.2.3", v2: "1.2.3", expected: 0},
		{name: "DevVersionVsRelease", v1: "dev", v2: "1.2.3", expected: -1},
		{name: "ReleaseVsDevVersion", v1: "1.2.3", v2: "dev", expected: 1},
		{name: "BothDevVersions", v1: "dev", v2: "", expected: 0},
		{name: "CommitHashVsRelease", v1: "abc123def456", v2: "1.2.3", expected: -1},
		{name: "VersionWithSuffix", v1: "1.2.3-rc1", v2: "1.2.3", expected: 0},
		{name: "TwoPartVersion", v1: "1.2", v2: "1.2.0", expected: 0},
		{name: "PureNumericIsVersion", v1: "2024010100", v2: "1.0.0", expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, CompareVersions(tt.v1, tt.v2))
		})
	}
}

func TestNormalizeVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version  string
		expected string
	}{
		{version: "v1.2.3", expected: "1.2.3"},
		{version: "1.2.3", expected: "1.2.3"},
		{version: "1.2.3-rc1+build.456", expected: "1.2.3"},
		{version: "  v1.2.3  ", expected: "1.2.3"},
		{version: "v", expected: ""},
		{version: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NormalizeVersion(tt.version))
		})
	}
}

func TestIsCommitHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version  string
		expected bool
	}{
		{version: "abc123d", expected: true},
		{version: "abc123d-dirty", expected: true},
		{version: "AbC123DeF456", expected: true},
		{version: "abc12", expected: false},
		{version: "abc123xyz", expected: false},
		{version: "1.2.3", expected: false},
		{version: "1234567", expected: false},
		{version: "0000000", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, isCommitHash(tt.version))
		})
	}
}

func TestParseVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{1, 2, 3}, parseVersion("1.2.3-rc1"))
	assert.Equal(t, []int{1, 3}, parseVersion("1.abc.3"))
	assert.Equal(t, []int{}, parseVersion(""))
}
