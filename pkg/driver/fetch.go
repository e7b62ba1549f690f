package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/rs/zerolog"
)

// FetchedProgram describes a program document read from git.
type FetchedProgram struct {
	Path   string
	Commit string
	// Source is git+url@commit.
	Source string
}

// GitFetcher copies pinned program documents out of git repositories into
// a cache directory. Only the document itself is kept.
type GitFetcher struct {
	cacheDir string
	logger   zerolog.Logger
}

func NewGitFetcher(cacheDir string, logger zerolog.Logger) *GitFetcher {
	if cacheDir == "" {
		return nil
	}
	return &GitFetcher{cacheDir: cacheDir, logger: logger}
}

// DefaultCacheDir is $GPL_CACHE, else the user cache directory.
func DefaultCacheDir() string {
	if dir := strings.TrimSpace(os.Getenv("GPL_CACHE")); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "gpl")
	}
	return filepath.Join(os.TempDir(), "gpl-cache")
}

const commitFile = "COMMIT"

// Fetch returns a local copy of the document spec names. Documents pinned
// by rev or tag are served from the cache once fetched; branch pins are
// fetched again every time.
func (g *GitFetcher) Fetch(spec *SourceSpec) (*FetchedProgram, error) {
	if g == nil {
		return nil, errors.New("git fetcher unavailable")
	}
	url := strings.TrimSpace(spec.Git)
	if url == "" {
		return nil, errors.New("source: git URL required")
	}
	doc, err := treePath(spec.Path)
	if err != nil {
		return nil, err
	}
	pin, err := sourcePin(spec)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(g.cacheDir, "programs", cacheKey(url, pin.String(), doc))
	local := filepath.Join(dir, path.Base(doc))
	if pin.immutable() {
		if commit, err := os.ReadFile(filepath.Join(dir, commitFile)); err == nil {
			if _, err := os.Stat(local); err == nil {
				g.logger.Debug().Str("url", url).Str("path", doc).Msg("program source cached")
				return fetched(url, local, strings.TrimSpace(string(commit))), nil
			}
		}
	}

	g.logger.Info().Str("url", url).Stringer("pin", pin).Msg("fetching program source")
	contents, commit, err := readFromGit(url, pin, doc)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(local, contents); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(filepath.Join(dir, commitFile), []byte(commit+"\n")); err != nil {
		return nil, err
	}
	g.logger.Debug().Str("commit", commit).Str("path", local).Msg("program source ready")
	return fetched(url, local, commit), nil
}

func fetched(url, local, commit string) *FetchedProgram {
	return &FetchedProgram{
		Path:   local,
		Commit: commit,
		Source: fmt.Sprintf("git+%s@%s", url, commit),
	}
}

// treePath validates a repository-relative document path and returns it in
// the slash form git trees use.
func treePath(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", errors.New("source.path must be provided")
	}
	if filepath.IsAbs(rel) || path.IsAbs(filepath.ToSlash(rel)) {
		return "", fmt.Errorf("source.path %q must be relative", rel)
	}
	clean := path.Clean(filepath.ToSlash(rel))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("source.path %q escapes the repository", rel)
	}
	return clean, nil
}

type pinKind int

const (
	pinRev pinKind = iota
	pinTag
	pinBranch
)

// pin is the one revision selector a source carries.
type pin struct {
	kind pinKind
	name string
}

func sourcePin(spec *SourceSpec) (pin, error) {
	switch {
	case strings.TrimSpace(spec.Rev) != "":
		return pin{pinRev, strings.TrimSpace(spec.Rev)}, nil
	case strings.TrimSpace(spec.Tag) != "":
		return pin{pinTag, strings.TrimSpace(spec.Tag)}, nil
	case strings.TrimSpace(spec.Branch) != "":
		return pin{pinBranch, strings.TrimSpace(spec.Branch)}, nil
	}
	return pin{}, errors.New("source requires rev, tag or branch")
}

func (p pin) immutable() bool { return p.kind != pinBranch }

func (p pin) String() string {
	switch p.kind {
	case pinTag:
		return "tag:" + p.name
	case pinBranch:
		return "branch:" + p.name
	}
	return "rev:" + p.name
}

// cloneOptions narrows the clone to the pinned ref when there is one. A rev
// may name any commit, so it needs the full history.
func (p pin) cloneOptions(url string) *git.CloneOptions {
	opts := &git.CloneOptions{URL: url}
	switch p.kind {
	case pinTag:
		opts.ReferenceName = plumbing.NewTagReferenceName(p.name)
		opts.SingleBranch = true
		opts.Depth = 1
	case pinBranch:
		opts.ReferenceName = plumbing.NewBranchReferenceName(p.name)
		opts.SingleBranch = true
		opts.Depth = 1
	}
	return opts
}

func (p pin) revision() plumbing.Revision {
	if p.kind == pinRev {
		return plumbing.Revision(p.name)
	}
	return plumbing.Revision(plumbing.HEAD)
}

// readFromGit clones url into memory and reads doc at the pinned commit.
func readFromGit(url string, p pin, doc string) ([]byte, string, error) {
	repo, err := git.Clone(memory.NewStorage(), nil, p.cloneOptions(url))
	if err != nil {
		return nil, "", fmt.Errorf("git clone %s: %w", url, err)
	}
	hash, err := repo.ResolveRevision(p.revision())
	if err != nil {
		return nil, "", fmt.Errorf("resolve %s: %w", p, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, "", fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := commit.File(doc)
	if err != nil {
		return nil, "", fmt.Errorf("%s at %s: %w", doc, hash.String()[:12], err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, "", err
	}
	return []byte(contents), hash.String(), nil
}

// cacheKey names the cache directory of one document at one pin.
func cacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:12])
}

func writeFileAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fetch-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
