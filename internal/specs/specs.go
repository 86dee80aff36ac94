// Package specs provides the install-specification lookup: per repository
// and version, the install command and the environment variables a test run
// needs. Specs are data, not code: they ship as YAML, with a small embedded
// default table that a --specs file can replace.
package specs

import (
	_ "embed"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/patcheval/patcheval/internal/errors"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// VersionSpec holds the per-version install specification.
type VersionSpec struct {
	// Install is run inside the environment before tests, when present.
	Install string `yaml:"install,omitempty"`
	// EnvVarsTest is injected only around the test-execution step.
	EnvVarsTest map[string]string `yaml:"env_vars_test,omitempty"`
	// TimeoutSeconds bounds the install step. Zero means unbounded.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// Lookup maps repository name, then version, to a VersionSpec.
type Lookup struct {
	table map[string]map[string]VersionSpec
}

// Default returns the lookup built from the embedded table.
func Default() *Lookup {
	l, err := parse(defaultsYAML)
	if err != nil {
		// The embedded table is part of the build; a parse failure is a
		// programming error, not a runtime condition.
		panic("specs: embedded defaults.yaml invalid: " + err.Error())
	}
	return l
}

// Load reads a lookup table from a YAML file.
func Load(path string) (*Lookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Configf("read install specs: %v", err)
	}
	l, err := parse(data)
	if err != nil {
		return nil, errors.Configf("parse install specs %s: %v", path, err)
	}
	return l, nil
}

func parse(data []byte) (*Lookup, error) {
	table := make(map[string]map[string]VersionSpec)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	return &Lookup{table: table}, nil
}

// For returns the spec for repo at version. The zero VersionSpec and false
// are returned when no entry exists; callers treat that as "nothing to do".
func (l *Lookup) For(repo, version string) (VersionSpec, bool) {
	if l == nil {
		return VersionSpec{}, false
	}
	versions, ok := l.table[repo]
	if !ok {
		return VersionSpec{}, false
	}
	spec, ok := versions[version]
	return spec, ok
}

// Repos returns the repository names present in the table.
func (l *Lookup) Repos() []string {
	repos := make([]string, 0, len(l.table))
	for repo := range l.table {
		repos = append(repos, repo)
	}
	return repos
}
