package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitlab-jenkins-sync/internal/processor"
	"github.com/gitlab-jenkins-sync/internal/reconciler"
	"github.com/gitlab-jenkins-sync/internal/server"
)

var (
	listenAddr string
	hookSecret string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Reconcile projects as GitLab reports them created, renamed or transferred",
	Long: `Start an HTTP listener for GitLab system hooks.

Register <listen-addr>/hooks/system as a system hook in GitLab with the same
secret token. Each project_create, project_rename and project_transfer event
is queued and answered with 202; a single worker reconciles queued projects
one at a time.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		cmd.SilenceUsage = true

		logger := newLogger(cfg.Logging.Level)
		logger.Info("starting hook service",
			"listen_addr", cfg.Server.ListenAddr,
			"gitlab_url", cfg.GitLab.URL,
			"jenkins_url", cfg.Jenkins.URL)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gl, jk := newClients(cfg, logger)
		if _, err := gl.CurrentUser(ctx); err != nil {
			return err
		}

		rec := reconciler.New(gl, jk, reconciler.Options{
			RegistryURL: cfg.GitLab.URL,
			JenkinsURL:  cfg.Jenkins.URL,
			Seed:        cfg.Jenkins.Seed,
			Output:      os.Stdout,
		}, logger.With(slog.String("component", "reconciler")))
		proc := processor.New(rec, cfg.Server.QueueSize, logger.With(slog.String("component", "processor")))
		srv := server.New(cfg, proc, logger.With(slog.String("component", "server")))

		runErr := srv.Run(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		proc.Shutdown(shutdownCtx)

		if runErr != nil {
			logger.Error("server terminated with error", "err", runErr)
			return runErr
		}
		logger.Info("hook service stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen-addr", "", "Address to listen on (default :8080)")
	serveCmd.Flags().StringVar(&hookSecret, "hook-secret", "", "Secret token GitLab sends with system hooks")
}
