package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gitlab-jenkins-sync/internal/jenkins"
)

type checkResult struct {
	passed   int
	errors   int
	warnings int
}

func (r *checkResult) pass(format string, args ...any) {
	pterm.Success.Printfln(format, args...)
	r.passed++
}

func (r *checkResult) fail(format string, args ...any) {
	pterm.Error.Printfln(format, args...)
	r.errors++
}

func (r *checkResult) warn(format string, args ...any) {
	pterm.Warning.Printfln(format, args...)
	r.warnings++
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credentials and required Jenkins plugins without changing anything",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		cmd.SilenceUsage = true

		logger := newLogger(cfg.Logging.Level)
		ctx := context.Background()
		result := &checkResult{}

		pterm.Println("Checking configuration...")
		pterm.Println()
		result.pass("Configuration is valid")

		gl, jk := newClients(cfg, logger)

		user, err := gl.CurrentUser(ctx)
		switch {
		case err != nil:
			result.fail("GitLab is not accessible at %s: %v", cfg.GitLab.URL, err)
		case !user.IsAdmin:
			result.warn("GitLab token of %s is not an administrator; only visible projects will be synced", user.Username)
		default:
			result.pass("GitLab is accessible at %s as %s", cfg.GitLab.URL, user.Username)
		}

		if err := jk.CheckAccessibility(ctx); err != nil {
			result.fail("Jenkins is not accessible at %s: %v", cfg.Jenkins.URL, err)
		} else {
			result.pass("Jenkins is accessible at %s", cfg.Jenkins.URL)
			checkPlugins(ctx, jk, result)
		}

		if cfg.Jenkins.Seed == "" {
			result.warn("No jenkins seed configured; trigger tokens derive from project paths alone")
		}

		pterm.Println()
		pterm.Printfln("Summary: %d checks passed, %d errors, %d warnings", result.passed, result.errors, result.warnings)
		if result.errors > 0 {
			return fmt.Errorf("%d checks failed", result.errors)
		}
		return nil
	},
}

func checkPlugins(ctx context.Context, jk *jenkins.Client, result *checkResult) {
	for _, name := range jenkins.RequiredPlugins {
		version, err := jk.PluginVersion(ctx, name)
		switch {
		case errors.Is(err, jenkins.ErrPluginNotInstalled):
			result.fail("Jenkins plugin %s is not installed", name)
		case err != nil:
			result.fail("Failed to query Jenkins plugin %s: %v", name, err)
		default:
			result.pass("Jenkins plugin %s@%s is installed", name, version)
		}
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
