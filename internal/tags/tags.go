// Package tags derives the descriptive topics a project gets from its
// languages, its license and the build files it carries.
package tags

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gitlab-jenkins-sync/internal/gitlab"
)

// Marker files and the tags they produce.
const (
	FileJenkinsfile = "Jenkinsfile"
	FilePOM         = "pom.xml"
	FileAntBuild    = "build.xml"

	TagCICD  = "CI/CD"
	TagMaven = "Maven"
	TagAnt   = "Ant"
)

// MinLanguagePercent is the share a language needs to become a tag.
const MinLanguagePercent = 5

var markerTags = []struct {
	file string
	tag  string
}{
	{FileJenkinsfile, TagCICD},
	{FilePOM, TagMaven},
	{FileAntBuild, TagAnt},
}

// Source is the registry access Probe needs.
type Source interface {
	Languages(ctx context.Context, projectID int) (map[string]float64, error)
	FileExists(ctx context.Context, projectID int, path, ref string) (bool, error)
}

// Facts are the inputs tag derivation works from.
type Facts struct {
	Languages  map[string]float64
	LicenseKey string
	// Files maps marker file names to their presence on the default branch.
	Files map[string]bool
}

// HasFile reports whether the marker file was found.
func (f Facts) HasFile(name string) bool {
	return f.Files[name]
}

// Probe collects the facts for p. Absent files are not errors; any other
// registry failure is.
func Probe(ctx context.Context, src Source, p *gitlab.Project) (Facts, error) {
	languages, err := src.Languages(ctx, p.ID)
	if err != nil {
		return Facts{}, err
	}

	facts := Facts{
		Languages:  languages,
		LicenseKey: p.LicenseKey(),
		Files:      make(map[string]bool, len(markerTags)),
	}
	for _, m := range markerTags {
		exists, err := src.FileExists(ctx, p.ID, m.file, p.DefaultBranch)
		if err != nil {
			return Facts{}, fmt.Errorf("probe marker files: %w", err)
		}
		facts.Files[m.file] = exists
	}
	return facts, nil
}

// Derive returns the sorted, de-duplicated tag list for facts.
func Derive(facts Facts) []string {
	set := make(map[string]struct{})
	for language, percent := range facts.Languages {
		if percent >= MinLanguagePercent {
			set[language] = struct{}{}
		}
	}
	if facts.LicenseKey != "" {
		set[strings.ToUpper(facts.LicenseKey)] = struct{}{}
	}
	for _, m := range markerTags {
		if facts.HasFile(m.file) {
			set[m.tag] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// ForProject probes p and derives its tags in one go.
func ForProject(ctx context.Context, src Source, p *gitlab.Project) ([]string, Facts, error) {
	facts, err := Probe(ctx, src, p)
	if err != nil {
		return nil, Facts{}, err
	}
	return Derive(facts), facts, nil
}
