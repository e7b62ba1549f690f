package main

import (
	"fmt"
	"strings"

	"github.com/iam1me/gpl/pkg/driver"
)

// runFetch copies the manifest's git program document into the cache.
func runFetch(args []string, opts options) int {
	if len(args) > 0 {
		fmt.Fprintf(stderr, "gpl fetch does not take arguments (received %s)\n", strings.Join(args, " "))
		return 1
	}
	manifest, err := loadManifestFrom(".")
	if err != nil {
		fmt.Fprintf(stderr, "failed to load manifest: %v\n", err)
		return 1
	}
	if manifest.Source == nil {
		fmt.Fprintf(stderr, "%s has no git source; nothing to fetch\n", manifest.Path)
		return 0
	}
	fetcher := driver.NewGitFetcher(driver.DefaultCacheDir(), newLogger(opts.logLevel))
	fetched, err := fetcher.Fetch(manifest.Source)
	if err != nil {
		fmt.Fprintf(stderr, "failed to fetch program: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s -> %s\n", fetched.Source, fetched.Path)
	return 0
}
