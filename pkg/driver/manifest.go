package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iam1me/gpl/pkg/interpreter"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file name LocateManifest searches for.
const ManifestName = "gpl.yml"

// Manifest represents the parsed contents of gpl.yml.
type Manifest struct {
	Path     string
	Name     string
	Program  string
	Source   *SourceSpec
	Frames   FrameSpec
	Seed     uint64
	ExecMode string
	// Keys maps a terminal key, written as a single character, to the
	// keystroke it produces.
	Keys map[rune]interpreter.Keystroke
}

// SourceSpec pins a program document stored in a git repository.
type SourceSpec struct {
	Git    string
	Rev    string
	Tag    string
	Branch string
	// Path is the program document inside the repository.
	Path string
}

// FrameSpec controls the frame loop.
type FrameSpec struct {
	Rate  float64
	Limit int
}

const (
	DefaultFrameRate = 30
	MaxFrameRate     = 1000
)

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LocateManifest walks up from dir until it finds gpl.yml.
func LocateManifest(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("manifest: resolve %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(abs, ManifestName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("manifest: no %s found above %s", ManifestName, dir)
		}
		abs = parent
	}
}

// LoadManifest parses gpl.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()
	return ParseManifest(file, absPath)
}

// ParseManifest decodes a manifest from r. path is recorded on the result
// and used to resolve the program path.
func ParseManifest(r io.Reader, path string) (*Manifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", path)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}

	manifest, issues := raw.toManifest(path)
	issues = append(issues, manifest.validate()...)
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return manifest, nil
}

// ProgramPath resolves the local program document relative to the manifest.
func (m *Manifest) ProgramPath() string {
	if m.Program == "" || filepath.IsAbs(m.Program) {
		return m.Program
	}
	return filepath.Join(filepath.Dir(m.Path), m.Program)
}

func (m *Manifest) validate() []string {
	var issues []string
	if m.Name == "" {
		issues = append(issues, "name must be provided")
	}
	switch {
	case m.Program == "" && m.Source == nil:
		issues = append(issues, "one of program or source must be provided")
	case m.Program != "" && m.Source != nil:
		issues = append(issues, "program and source are mutually exclusive")
	}
	if s := m.Source; s != nil {
		if s.Git == "" {
			issues = append(issues, "source.git must be provided")
		}
		if s.Path == "" {
			issues = append(issues, "source.path must be provided")
		}
		pins := 0
		for _, v := range []string{s.Rev, s.Tag, s.Branch} {
			if v != "" {
				pins++
			}
		}
		if pins != 1 {
			issues = append(issues, "source requires exactly one of rev, tag or branch")
		}
	}
	if m.Frames.Rate <= 0 || m.Frames.Rate > MaxFrameRate {
		issues = append(issues, fmt.Sprintf("frames.rate must be in (0, %d], got %g", MaxFrameRate, m.Frames.Rate))
	}
	if m.Frames.Limit < 0 {
		issues = append(issues, "frames.limit must not be negative")
	}
	if _, err := interpreter.ParseExecMode(m.ExecMode); err != nil {
		issues = append(issues, err.Error())
	}
	return issues
}

type manifestFile struct {
	Name     string            `yaml:"name"`
	Program  string            `yaml:"program"`
	Source   *sourceYAML       `yaml:"source"`
	Frames   *framesYAML       `yaml:"frames"`
	Seed     uint64            `yaml:"seed"`
	ExecMode string            `yaml:"exec_mode"`
	Keys     map[string]string `yaml:"keys"`
}

type sourceYAML struct {
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
	Path   string `yaml:"path"`
}

type framesYAML struct {
	Rate  *float64 `yaml:"rate"`
	Limit int      `yaml:"limit"`
}

func (mf manifestFile) toManifest(path string) (*Manifest, []string) {
	var issues []string
	m := &Manifest{
		Path:     path,
		Name:     strings.TrimSpace(mf.Name),
		Program:  strings.TrimSpace(mf.Program),
		Seed:     mf.Seed,
		ExecMode: strings.TrimSpace(mf.ExecMode),
		Frames:   FrameSpec{Rate: DefaultFrameRate},
		Keys:     make(map[rune]interpreter.Keystroke, len(mf.Keys)),
	}
	if mf.Source != nil {
		m.Source = &SourceSpec{
			Git:    strings.TrimSpace(mf.Source.Git),
			Rev:    strings.TrimSpace(mf.Source.Rev),
			Tag:    strings.TrimSpace(mf.Source.Tag),
			Branch: strings.TrimSpace(mf.Source.Branch),
			Path:   strings.TrimSpace(mf.Source.Path),
		}
	}
	if mf.Frames != nil {
		if mf.Frames.Rate != nil {
			m.Frames.Rate = *mf.Frames.Rate
		}
		m.Frames.Limit = mf.Frames.Limit
	}

	chars := make([]string, 0, len(mf.Keys))
	for char := range mf.Keys {
		chars = append(chars, char)
	}
	sort.Strings(chars)
	for _, char := range chars {
		runes := []rune(char)
		if len(runes) != 1 {
			issues = append(issues, fmt.Sprintf("keys: %q must be a single character", char))
			continue
		}
		key, ok := interpreter.ParseKeystroke(mf.Keys[char])
		if !ok {
			issues = append(issues, fmt.Sprintf("keys.%s: unknown keystroke %q", char, mf.Keys[char]))
			continue
		}
		m.Keys[runes[0]] = key
	}
	return m, issues
}
