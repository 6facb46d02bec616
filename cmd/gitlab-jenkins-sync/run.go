package main

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gitlab-jenkins-sync/internal/reconciler"
)

var projectID int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile every GitLab project with Jenkins",
	Long: `Reconcile every GitLab project, in id order, with Jenkins.

Examples:
  gitlab-jenkins-sync run --gitlab-url https://git.example --gitlab-admin-token glpat-... \
    --jenkins-url https://ci.example --jenkins-admin-user admin --jenkins-admin-password ...
  gitlab-jenkins-sync run --config sync.yaml --project-id 42

The run stops at the first error.`,
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

		rule := strings.Repeat("=", 80)
		pterm.Println(rule)
		pterm.Printfln("gitlab-url  : %q", cfg.GitLab.URL)
		pterm.Printfln("jenkins-url : %q", cfg.Jenkins.URL)
		pterm.Println(rule)

		gl, jk := newClients(cfg, logger)
		user, err := gl.CurrentUser(ctx)
		if err != nil {
			return err
		}
		logger.Info("authenticated against gitlab", slog.String("user", user.Username), slog.Bool("admin", user.IsAdmin))

		rec := reconciler.New(gl, jk, reconciler.Options{
			RegistryURL: cfg.GitLab.URL,
			JenkinsURL:  cfg.Jenkins.URL,
			Seed:        cfg.Jenkins.Seed,
		}, logger.With(slog.String("component", "reconciler")))

		if projectID > 0 {
			err = rec.Reconcile(ctx, projectID)
		} else {
			err = rec.Run(ctx)
		}
		if err != nil {
			return err
		}
		pterm.Println(rule)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&projectID, "project-id", 0, "Reconcile only this project")
}
