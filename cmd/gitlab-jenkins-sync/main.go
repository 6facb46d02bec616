package main

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gitlab-jenkins-sync/internal/config"
	"github.com/gitlab-jenkins-sync/internal/gitlab"
	"github.com/gitlab-jenkins-sync/internal/jenkins"
)

func main() {
	Execute()
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(lvl string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHTTPClient(skipTLSVerify bool, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipTLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func newClients(cfg *config.Config, logger *slog.Logger) (*gitlab.Client, *jenkins.Client) {
	gl := gitlab.NewClient(
		cfg.GitLab.URL,
		cfg.GitLab.AdminToken,
		newHTTPClient(cfg.GitLab.SkipTLSVerify, cfg.GitLab.Timeout.Duration),
		logger.With(slog.String("component", "gitlab_client")),
	)
	jk := jenkins.NewClient(
		cfg.Jenkins.URL,
		cfg.Jenkins.AdminUser,
		cfg.Jenkins.AdminPassword,
		newHTTPClient(cfg.Jenkins.SkipTLSVerify, cfg.Jenkins.Timeout.Duration),
		logger.With(slog.String("component", "jenkins_client")),
	)
	return gl, jk
}
