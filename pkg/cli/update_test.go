package cli

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const releasesJSON = `[
  {"tag_name": "v0.2.0", "assets": [{"name": "convolve-linux-amd64", "browser_download_url": "https://example.invalid/0.2.0"}]},
  {"tag_name": "v9.0.0-rc1", "prerelease": true},
  {"tag_name": "v8.0.0", "draft": true},
  {"tag_name": "nightly"},
  {"tag_name": "release-0.5.2", "assets": [
    {"name": "checksums.txt", "browser_download_url": "https://example.invalid/sums"},
    {"name": "convolve_darwin_arm64.tar.gz", "browser_download_url": "https://example.invalid/0.5.2"}
  ]}
]`

func releaseServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/"+repo+"/releases" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setVersion(t *testing.T, v string) {
	old := Version
	Version = v
	t.Cleanup(func() { Version = old })
}

func TestLatestReleasePicksHighestStable(t *testing.T) {
	srv := releaseServer(t, http.StatusOK, releasesJSON)
	rel, err := latestRelease(srv.Client(), srv.URL, repo)
	if err != nil {
		t.Fatalf("latestRelease failed: %v", err)
	}
	if rel == nil || rel.Version.String() != "0.5.2" {
		t.Fatalf("got %+v, want 0.5.2", rel)
	}
	if rel.AssetURL != "https://example.invalid/0.5.2" {
		t.Fatalf("asset %q, want the platform build", rel.AssetURL)
	}
}

func TestCheckForUpdatesApplies(t *testing.T) {
	setVersion(t, "0.3.1")
	srv := releaseServer(t, http.StatusOK, releasesJSON)
	var applied string
	var out bytes.Buffer
	err := checkForUpdates(&out, srv.Client(), srv.URL, func(u string) error {
		applied = u
		return nil
	})
	if err != nil {
		t.Fatalf("checkForUpdates failed: %v", err)
	}
	if applied != "https://example.invalid/0.5.2" {
		t.Fatalf("applied %q", applied)
	}
	if !strings.Contains(out.String(), "Updated to version 0.5.2") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestCheckForUpdatesUpToDate(t *testing.T) {
	setVersion(t, "v0.5.2")
	srv := releaseServer(t, http.StatusOK, releasesJSON)
	var out bytes.Buffer
	err := checkForUpdates(&out, srv.Client(), srv.URL, func(string) error {
		t.Fatalf("update must not be applied")
		return nil
	})
	if err != nil {
		t.Fatalf("checkForUpdates failed: %v", err)
	}
	if !strings.Contains(out.String(), "already running the latest version") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestCheckForUpdatesErrors(t *testing.T) {
	setVersion(t, "0.1.0")
	srv := releaseServer(t, http.StatusInternalServerError, "boom")
	if err := checkForUpdates(&bytes.Buffer{}, srv.Client(), srv.URL, nil); err == nil {
		t.Fatalf("expected an error for a failing API")
	}

	ok := releaseServer(t, http.StatusOK, releasesJSON)
	failure := errors.New("disk full")
	err := checkForUpdates(&bytes.Buffer{}, ok.Client(), ok.URL, func(string) error { return failure })
	if !errors.Is(err, failure) {
		t.Fatalf("expected apply error to be wrapped, got %v", err)
	}

	empty := releaseServer(t, http.StatusOK, "[]")
	var out bytes.Buffer
	if err := checkForUpdates(&out, empty.Client(), empty.URL, nil); err != nil {
		t.Fatalf("no releases should not be an error: %v", err)
	}
	if !strings.Contains(out.String(), "No releases found") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}
