package jenkins

import (
	"context"
	"encoding/xml"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlugins struct {
	versions map[string]string
	calls    []string
}

func (s *stubPlugins) PluginVersion(_ context.Context, shortName string) (string, error) {
	s.calls = append(s.calls, shortName)
	v, ok := s.versions[shortName]
	if !ok {
		return "", ErrPluginNotInstalled
	}
	return v, nil
}

func allPlugins() *stubPlugins {
	return &stubPlugins{versions: map[string]string{
		PluginGit:         "5.2.1",
		PluginWorkflowCPS: "3889.v937e0b_3412d3",
		PluginWorkflowJob: "1400.v7fd111b_ec82f",
	}}
}

func sampleSpec() JobSpec {
	return JobSpec{
		CloneURL:    "https://git.example/org/app.git",
		Branch:      "develop",
		AuthToken:   "abc123",
		Description: "Billing service",
		WebURL:      "https://git.example/org/app",
		RegistryURL: "https://git.example/",
		Tags:        []string{"CI/CD", "Go", "MIT", "Shell"},
	}
}

func TestJobConfigBuilder_Build_Shape(t *testing.T) {
	plugins := allPlugins()
	out, err := NewJobConfigBuilder(plugins).Build(context.Background(), sampleSpec())
	require.NoError(t, err)

	var doc flowDefinition
	require.NoError(t, xml.Unmarshal(out, &doc))

	assert.Equal(t, "workflow-job@1400.v7fd111b_ec82f", doc.Plugin)
	assert.Equal(t, "abc123", doc.AuthToken)
	assert.False(t, doc.Disabled)
	assert.False(t, doc.KeepDependencies)

	def := doc.Definition
	assert.Equal(t, "org.jenkinsci.plugins.workflow.cps.CpsScmFlowDefinition", def.Class)
	assert.Equal(t, "workflow-cps@3889.v937e0b_3412d3", def.Plugin)
	assert.True(t, def.Lightweight)
	assert.Equal(t, "Jenkinsfile", def.ScriptPath)

	scmPart := def.SCM
	assert.Equal(t, "hudson.plugins.git.GitSCM", scmPart.Class)
	assert.Equal(t, "git@5.2.1", scmPart.Plugin)
	assert.Equal(t, 2, scmPart.ConfigVersion)
	assert.False(t, scmPart.DoGenerateSubmoduleConfigurations)
	require.Len(t, scmPart.Branches, 1)
	assert.Equal(t, "*/develop", scmPart.Branches[0].Name)
	require.Len(t, scmPart.UserRemoteConfigs, 1)
	assert.Equal(t, "https://git.example/org/app.git", scmPart.UserRemoteConfigs[0].URL)
	assert.Equal(t, "gitlab-credentials", scmPart.UserRemoteConfigs[0].CredentialsID)

	assert.ElementsMatch(t, RequiredPlugins, plugins.calls)
}

func TestJobConfigBuilder_Build_ElementNames(t *testing.T) {
	out, err := NewJobConfigBuilder(allPlugins()).Build(context.Background(), sampleSpec())
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, `<flow-definition plugin="workflow-job@1400.v7fd111b_ec82f">`)
	assert.Contains(t, text, `<scm class="hudson.plugins.git.GitSCM" plugin="git@5.2.1">`)
	assert.Contains(t, text, "<hudson.plugins.git.BranchSpec>")
	assert.Contains(t, text, "<hudson.plugins.git.UserRemoteConfig>")
	assert.Contains(t, text, "\n  <authToken>abc123</authToken>")
	assert.NotContains(t, text, "xmlns")
}

func TestJobConfigBuilder_Build_Description(t *testing.T) {
	out, err := NewJobConfigBuilder(allPlugins()).Build(context.Background(), sampleSpec())
	require.NoError(t, err)

	var doc flowDefinition
	require.NoError(t, xml.Unmarshal(out, &doc))

	want := `Billing service<hr>Tags: ` +
		`<a href="https://git.example/explore/projects?tag=CI%2FCD">CI/CD</a>, ` +
		`<a href="https://git.example/explore/projects?tag=Go">Go</a>, ` +
		`<a href="https://git.example/explore/projects?tag=MIT">MIT</a>, ` +
		`<a href="https://git.example/explore/projects?tag=Shell">Shell</a>` +
		`<hr><a href="https://git.example/org/app">https://git.example/org/app</a>`
	assert.Equal(t, want, doc.Description)
}

func TestProjectDescription_NoTags(t *testing.T) {
	spec := sampleSpec()
	spec.Description = ""
	spec.Tags = nil

	assert.Equal(t,
		`<hr>Tags: <hr><a href="https://git.example/org/app">https://git.example/org/app</a>`,
		ProjectDescription(spec))
}

func TestJobConfigBuilder_Build_MissingPlugin(t *testing.T) {
	plugins := allPlugins()
	delete(plugins.versions, PluginWorkflowCPS)

	out, err := NewJobConfigBuilder(plugins).Build(context.Background(), sampleSpec())
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPluginNotInstalled))
	assert.Contains(t, err.Error(), "workflow-cps")
}

func TestJobConfigBuilder_Build_EmptyVersion(t *testing.T) {
	plugins := allPlugins()
	plugins.versions[PluginGit] = ""

	_, err := NewJobConfigBuilder(plugins).Build(context.Background(), sampleSpec())
	assert.ErrorIs(t, err, ErrPluginNotInstalled)
}
