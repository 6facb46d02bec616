package jenkins

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"net/url"
	"strings"
)

// Plugin short names and classes referenced by a pipeline job config.
const (
	PluginGit         = "git"
	PluginWorkflowCPS = "workflow-cps"
	PluginWorkflowJob = "workflow-job"

	classGitSCM        = "hudson.plugins.git.GitSCM"
	classCpsScmFlowDef = "org.jenkinsci.plugins.workflow.cps.CpsScmFlowDefinition"

	// CredentialsID is the Jenkins credential used to clone from GitLab.
	CredentialsID = "gitlab-credentials"
	// ScriptPath is the pipeline script looked up in the repository.
	ScriptPath = "Jenkinsfile"
)

// RequiredPlugins lists the plugins a generated job needs.
var RequiredPlugins = []string{PluginGit, PluginWorkflowCPS, PluginWorkflowJob}

// PluginVersioner resolves installed plugin versions.
type PluginVersioner interface {
	PluginVersion(ctx context.Context, shortName string) (string, error)
}

// JobSpec is the project data that goes into one pipeline job.
type JobSpec struct {
	CloneURL    string
	Branch      string
	AuthToken   string
	Description string
	WebURL      string
	// RegistryURL is the GitLab base URL used for tag links.
	RegistryURL string
	Tags        []string
}

// JobConfigBuilder renders pipeline job config.xml documents.
type JobConfigBuilder struct {
	plugins PluginVersioner
}

// NewJobConfigBuilder returns a builder that looks plugin versions up live.
func NewJobConfigBuilder(plugins PluginVersioner) *JobConfigBuilder {
	return &JobConfigBuilder{plugins: plugins}
}

type flowDefinition struct {
	XMLName          xml.Name   `xml:"flow-definition"`
	Plugin           string     `xml:"plugin,attr"`
	AuthToken        string     `xml:"authToken"`
	Definition       definition `xml:"definition"`
	Description      string     `xml:"description"`
	Disabled         bool       `xml:"disabled"`
	KeepDependencies bool       `xml:"keepDependencies"`
}

type definition struct {
	Class       string `xml:"class,attr"`
	Plugin      string `xml:"plugin,attr"`
	Lightweight bool   `xml:"lightweight"`
	SCM         scm    `xml:"scm"`
	ScriptPath  string `xml:"scriptPath"`
}

type scm struct {
	Class                             string             `xml:"class,attr"`
	Plugin                            string             `xml:"plugin,attr"`
	Branches                          []branchSpec       `xml:"branches>hudson.plugins.git.BranchSpec"`
	ConfigVersion                     int                `xml:"configVersion"`
	DoGenerateSubmoduleConfigurations bool               `xml:"doGenerateSubmoduleConfigurations"`
	UserRemoteConfigs                 []userRemoteConfig `xml:"userRemoteConfigs>hudson.plugins.git.UserRemoteConfig"`
}

type branchSpec struct {
	Name string `xml:"name"`
}

type userRemoteConfig struct {
	URL           string `xml:"url"`
	CredentialsID string `xml:"credentialsId"`
}

// Build renders the config.xml for spec. Every call queries the three plugin
// versions; a missing plugin aborts with ErrPluginNotInstalled.
func (b *JobConfigBuilder) Build(ctx context.Context, spec JobSpec) ([]byte, error) {
	def, err := b.definition(ctx, spec)
	if err != nil {
		return nil, err
	}
	jobPlugin, err := b.pluginRef(ctx, PluginWorkflowJob)
	if err != nil {
		return nil, err
	}

	doc := flowDefinition{
		Plugin:           jobPlugin,
		AuthToken:        spec.AuthToken,
		Definition:       def,
		Description:      ProjectDescription(spec),
		Disabled:         false,
		KeepDependencies: false,
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal job config: %w", err)
	}
	return append(out, '\n'), nil
}

func (b *JobConfigBuilder) definition(ctx context.Context, spec JobSpec) (definition, error) {
	scmPart, err := b.scm(ctx, spec)
	if err != nil {
		return definition{}, err
	}
	plugin, err := b.pluginRef(ctx, PluginWorkflowCPS)
	if err != nil {
		return definition{}, err
	}
	return definition{
		Class:       classCpsScmFlowDef,
		Plugin:      plugin,
		Lightweight: true,
		SCM:         scmPart,
		ScriptPath:  ScriptPath,
	}, nil
}

func (b *JobConfigBuilder) scm(ctx context.Context, spec JobSpec) (scm, error) {
	plugin, err := b.pluginRef(ctx, PluginGit)
	if err != nil {
		return scm{}, err
	}
	return scm{
		Class:                             classGitSCM,
		Plugin:                            plugin,
		Branches:                          []branchSpec{{Name: "*/" + spec.Branch}},
		ConfigVersion:                     2,
		DoGenerateSubmoduleConfigurations: false,
		UserRemoteConfigs: []userRemoteConfig{{
			URL:           spec.CloneURL,
			CredentialsID: CredentialsID,
		}},
	}, nil
}

// pluginRef returns the "name@version" value Jenkins writes into plugin attributes.
func (b *JobConfigBuilder) pluginRef(ctx context.Context, shortName string) (string, error) {
	version, err := b.plugins.PluginVersion(ctx, shortName)
	if err != nil {
		return "", fmt.Errorf("resolve plugin %s: %w", shortName, err)
	}
	if version == "" {
		return "", fmt.Errorf("resolve plugin %s: %w", shortName, ErrPluginNotInstalled)
	}
	return shortName + "@" + version, nil
}

// ProjectDescription renders the HTML job description: the project's own
// description, links to the GitLab tag listings, and a link back to the project.
func ProjectDescription(spec JobSpec) string {
	registry := strings.TrimRight(spec.RegistryURL, "/")

	var sb strings.Builder
	sb.WriteString(spec.Description)
	sb.WriteString("<hr>Tags: ")
	for i, tag := range spec.Tags {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, `<a href="%s/explore/projects?tag=%s">%s</a>`,
			registry, url.QueryEscape(tag), html.EscapeString(tag))
	}
	sb.WriteString("<hr>")
	fmt.Fprintf(&sb, `<a href="%s">%s</a>`, spec.WebURL, html.EscapeString(spec.WebURL))
	return sb.String()
}
