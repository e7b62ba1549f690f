package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
)

func TestTreePath(t *testing.T) {
	cases := map[string]string{
		"pong.yml":              "pong.yml",
		"games/pong.yml":        "games/pong.yml",
		"./games//pong.yml":     "games/pong.yml",
		"games/../pong.yml":     "pong.yml",
		" games/breakout.yml  ": "games/breakout.yml",
	}
	for in, want := range cases {
		got, err := treePath(in)
		if err != nil {
			t.Fatalf("treePath(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Fatalf("treePath(%q) = %q, want %q", in, got, want)
		}
	}
	for _, rel := range []string{"", ".", "../secret.yml", "games/../../x.yml", "/etc/passwd"} {
		if _, err := treePath(rel); err == nil {
			t.Fatalf("treePath(%q) should fail", rel)
		}
	}
}

func TestSourcePin(t *testing.T) {
	cases := []struct {
		spec      SourceSpec
		pin       string
		immutable bool
		revision  plumbing.Revision
	}{
		{SourceSpec{Rev: "abc123", Tag: "ignored"}, "rev:abc123", true, "abc123"},
		{SourceSpec{Tag: "v1.0.0"}, "tag:v1.0.0", true, "HEAD"},
		{SourceSpec{Branch: " main "}, "branch:main", false, "HEAD"},
	}
	for _, tc := range cases {
		p, err := sourcePin(&tc.spec)
		if err != nil {
			t.Fatalf("sourcePin(%#v) returned error: %v", tc.spec, err)
		}
		if p.String() != tc.pin || p.immutable() != tc.immutable || p.revision() != tc.revision {
			t.Fatalf("sourcePin(%#v) = %v immutable=%v revision=%q", tc.spec, p, p.immutable(), p.revision())
		}
	}
	if _, err := sourcePin(&SourceSpec{Git: "x"}); err == nil {
		t.Fatalf("expected error without a pin")
	}
}

func TestPinCloneOptions(t *testing.T) {
	opts := pin{pinTag, "v2"}.cloneOptions("https://example.invalid/games.git")
	if opts.ReferenceName != "refs/tags/v2" || !opts.SingleBranch || opts.Depth != 1 {
		t.Fatalf("tag clone options = %#v", opts)
	}
	opts = pin{pinBranch, "main"}.cloneOptions("u")
	if opts.ReferenceName != "refs/heads/main" || !opts.SingleBranch {
		t.Fatalf("branch clone options = %#v", opts)
	}
	opts = pin{pinRev, "abc123"}.cloneOptions("u")
	if opts.ReferenceName != "" || opts.SingleBranch || opts.Depth != 0 {
		t.Fatalf("rev clone options = %#v", opts)
	}
}

func TestCacheKeySeparatesDocuments(t *testing.T) {
	url := "https://example.invalid/games.git"
	a := cacheKey(url, "rev:abc", "pong.yml")
	if a != cacheKey(url, "rev:abc", "pong.yml") {
		t.Fatalf("cacheKey is not stable")
	}
	for _, other := range []string{
		cacheKey(url, "rev:abc", "breakout.yml"),
		cacheKey(url, "rev:abd", "pong.yml"),
		cacheKey(url+"x", "rev:abc", "pong.yml"),
	} {
		if other == a {
			t.Fatalf("cacheKey collision for %q", other)
		}
	}
}

func seedCache(t *testing.T, cache, url, pinName, doc, commit string) string {
	t.Helper()
	dir := filepath.Join(cache, "programs", cacheKey(url, pinName, doc))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	local := filepath.Join(dir, filepath.Base(doc))
	if err := os.WriteFile(local, []byte("declarations: []\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, commitFile), []byte(commit+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return local
}

func TestFetchReusesPinnedDocument(t *testing.T) {
	cache := t.TempDir()
	url := "https://example.invalid/games.git"
	local := seedCache(t, cache, url, "tag:v1.0.0", "games/pong.yml", "deadbeef")

	fetcher := NewGitFetcher(cache, zerolog.Nop())
	fetched, err := fetcher.Fetch(&SourceSpec{Git: url, Tag: "v1.0.0", Path: "games/pong.yml"})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if fetched.Path != local || filepath.Base(fetched.Path) != "pong.yml" {
		t.Fatalf("Path = %q", fetched.Path)
	}
	if fetched.Commit != "deadbeef" || fetched.Source != "git+"+url+"@deadbeef" {
		t.Fatalf("fetched = %#v", fetched)
	}
}

func TestFetchRejectsBadSpecBeforeCloning(t *testing.T) {
	fetcher := NewGitFetcher(t.TempDir(), zerolog.Nop())
	for name, spec := range map[string]SourceSpec{
		"no url":  {Rev: "abc", Path: "a.yml"},
		"escape":  {Git: "u", Rev: "abc", Path: "../a.yml"},
		"no pin":  {Git: "u", Path: "a.yml"},
		"no path": {Git: "u", Rev: "abc"},
	} {
		if _, err := fetcher.Fetch(&spec); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "doc.yml")
	if err := writeFileAtomic(dst, []byte("one")); err != nil {
		t.Fatalf("writeFileAtomic returned error: %v", err)
	}
	if err := writeFileAtomic(dst, []byte("two")); err != nil {
		t.Fatalf("writeFileAtomic returned error: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "two" {
		t.Fatalf("contents = %q, err = %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(dst))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestNewGitFetcherWithoutCache(t *testing.T) {
	var fetcher *GitFetcher = NewGitFetcher("", zerolog.Nop())
	if fetcher != nil {
		t.Fatalf("expected nil fetcher")
	}
	if _, err := fetcher.Fetch(&SourceSpec{Git: "x", Rev: "y", Path: "a.yml"}); err == nil {
		t.Fatalf("expected error from nil fetcher")
	}
}

func TestDefaultCacheDirHonorsEnv(t *testing.T) {
	t.Setenv("GPL_CACHE", "/tmp/gpl-test-cache")
	if got := DefaultCacheDir(); got != "/tmp/gpl-test-cache" {
		t.Fatalf("DefaultCacheDir = %q", got)
	}
}
