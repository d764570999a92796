package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

// releasesAPI is the GitHub API root; tests point it at an httptest server.
var releasesAPI = "https://api.github.com"

// ghRelease is the subset of the GitHub releases payload we use.
type ghRelease struct {
	TagName    string    `json:"tag_name"`
	Name       string    `json:"name"`
	Draft      bool      `json:"draft"`
	Prerelease bool      `json:"prerelease"`
	Assets     []ghAsset `json:"assets"`
}

type ghAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

var semverRe = regexp.MustCompile(`v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?`)

// latestRelease returns the highest published, non-prerelease release whose
// tag (or name) contains a semantic version. It returns nil when there is
// none.
func latestRelease(client *http.Client, apiBase, repo string) (*selfupdate.Release, error) {
	resp, err := client.Get(fmt.Sprintf("%s/repos/%s/releases", strings.TrimRight(apiBase, "/"), repo))
	if err != nil {
		return nil, fmt.Errorf("github API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading github response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github API returned status %d: %s", resp.StatusCode, string(body))
	}

	var releases []ghRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, fmt.Errorf("failed to decode github releases: %w", err)
	}

	var candidates []selfupdate.Release
	for _, r := range releases {
		if r.Draft || r.Prerelease {
			continue
		}
		match := semverRe.FindString(r.TagName)
		if match == "" {
			match = semverRe.FindString(r.Name)
		}
		if match == "" {
			continue
		}
		v, err := semver.Parse(strings.TrimPrefix(match, "v"))
		if err != nil {
			continue
		}
		candidates = append(candidates, selfupdate.Release{Version: v, AssetURL: pickAsset(r.Assets)})
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Version.GT(candidates[j].Version)
	})
	return &candidates[0], nil
}

// pickAsset prefers an asset named for a platform and falls back to the first.
func pickAsset(assets []ghAsset) string {
	for _, a := range assets {
		n := strings.ToLower(a.Name)
		for _, hint := range []string{"darwin", "linux", "windows", "amd64", "arm64"} {
			if strings.Contains(n, hint) {
				return a.BrowserDownloadURL
			}
		}
	}
	if len(assets) > 0 {
		return assets[0].BrowserDownloadURL
	}
	return ""
}

// CheckForUpdates compares Version with the latest GitHub release and
// replaces the running executable when a newer one has a downloadable asset.
func CheckForUpdates(w io.Writer) error {
	client := &http.Client{Timeout: 10 * time.Second}
	return checkForUpdates(w, client, releasesAPI, func(assetURL string) error {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("could not locate executable: %w", err)
		}
		return selfupdate.UpdateTo(assetURL, exe)
	})
}

func checkForUpdates(w io.Writer, client *http.Client, apiBase string, apply func(assetURL string) error) error {
	fmt.Fprintf(w, "Current version: %s\n", Version)
	current, err := semver.Parse(strings.TrimPrefix(Version, "v"))
	if err != nil {
		return fmt.Errorf("could not parse current version %q: %w", Version, err)
	}

	latest, err := latestRelease(client, apiBase, repo)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}
	if latest == nil {
		fmt.Fprintf(w, "No releases found for %s.\n", repo)
		return nil
	}
	fmt.Fprintf(w, "Latest version: %s\n", latest.Version)

	if !latest.Version.GT(current) {
		fmt.Fprintf(w, "You are already running the latest version: %s.\n", current)
		return nil
	}
	if latest.AssetURL == "" {
		fmt.Fprintf(w, "A new version (%s) is available but there is no downloadable asset.\n", latest.Version)
		return nil
	}

	fmt.Fprintln(w, "Updating...")
	if err := apply(latest.AssetURL); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	fmt.Fprintf(w, "Updated to version %s.\n", latest.Version)
	return nil
}
