package main

import (
	"github.com/spf13/cobra"

	"github.com/gitlab-jenkins-sync/internal/config"
)

// connection flags shared by every subcommand
var (
	configPath           string
	debug                bool
	gitlabURL            string
	gitlabAdminToken     string
	jenkinsURL           string
	jenkinsAdminUser     string
	jenkinsAdminPassword string
	jenkinsSeed          string
)

var rootCmd = &cobra.Command{
	Use:   "gitlab-jenkins-sync",
	Short: "Align GitLab project configurations with Jenkins pipelines",
	Long: `gitlab-jenkins-sync normalizes the settings, protected branches and topics
of every GitLab project and provisions a Jenkins pipeline job, a webhook and a
build badge for each project that contains a Jenkinsfile.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to an optional YAML configuration file")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.StringVar(&gitlabURL, "gitlab-url", "", "URL for gitlab instance")
	pf.StringVar(&gitlabAdminToken, "gitlab-admin-token", "", "gitlab administrator token")
	pf.StringVar(&jenkinsURL, "jenkins-url", "", "URL for jenkins instance")
	pf.StringVar(&jenkinsAdminUser, "jenkins-admin-user", "", "jenkins administrator account")
	pf.StringVar(&jenkinsAdminPassword, "jenkins-admin-password", "", "jenkins administrator password")
	pf.StringVar(&jenkinsSeed, "jenkins-seed", "", "seed for the per-project jenkins trigger token")
}

// loadConfig reads the optional file, then lets flags given on the command
// line override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs := cmd.Flags()
	overlay := func(name string, dst *string, val string) {
		if fs.Changed(name) {
			*dst = val
		}
	}
	overlay("gitlab-url", &cfg.GitLab.URL, gitlabURL)
	overlay("gitlab-admin-token", &cfg.GitLab.AdminToken, gitlabAdminToken)
	overlay("jenkins-url", &cfg.Jenkins.URL, jenkinsURL)
	overlay("jenkins-admin-user", &cfg.Jenkins.AdminUser, jenkinsAdminUser)
	overlay("jenkins-admin-password", &cfg.Jenkins.AdminPassword, jenkinsAdminPassword)
	overlay("jenkins-seed", &cfg.Jenkins.Seed, jenkinsSeed)
	overlay("listen-addr", &cfg.Server.ListenAddr, listenAddr)
	overlay("hook-secret", &cfg.Server.HookSecret, hookSecret)
	if debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
