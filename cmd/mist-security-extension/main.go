package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/madrow1/mist-security-extension/internal/api"
	"github.com/madrow1/mist-security-extension/internal/assessment"
	"github.com/madrow1/mist-security-extension/internal/config"
	"github.com/madrow1/mist-security-extension/internal/crypto"
	"github.com/madrow1/mist-security-extension/internal/logging"
	"github.com/madrow1/mist-security-extension/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "mist-security-extension",
	Short:   "Security posture assessment backend for Mist-managed networks",
	Long:    `Assesses the security posture of Mist-managed wireless deployments: admin MFA, firmware compliance, password policy, and WLAN configuration, stored as timestamped batches per organization.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run one assessment from the command line",
	RunE:  runAssess,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge an organization's credential and assessment history",
	RunE:  runPurge,
}

var (
	assessOrgID  string
	assessAPIURL string
	assessAPIKey string
	purgeOrgID   string
)

func init() {
	assessCmd.Flags().StringVar(&assessOrgID, "org", "", "organization UUID")
	assessCmd.Flags().StringVar(&assessAPIURL, "api-url", "", "Mist API base URL (onboard only)")
	assessCmd.Flags().StringVar(&assessAPIKey, "api-key", "", "Mist API token (onboard only)")
	assessCmd.MarkFlagRequired("org")

	purgeCmd.Flags().StringVar(&purgeOrgID, "org", "", "organization UUID")
	purgeCmd.MarkFlagRequired("org")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(purgeCmd)
}

type backend struct {
	provider *config.Provider
	store    *store.Store
	runner   *assessment.Runner
	registry *prometheus.Registry
}

func newBackend() (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "mist-security-extension",
	})

	cryptoManager, err := crypto.NewManager(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	provider := config.NewProvider(cfg)
	registry := prometheus.NewRegistry()
	metrics := assessment.NewMetrics(registry)
	runner := assessment.NewRunner(st, cryptoManager, provider, metrics)

	return &backend{
		provider: provider,
		store:    st,
		runner:   runner,
		registry: registry,
	}, nil
}

func runServer() error {
	b, err := newBackend()
	if err != nil {
		return err
	}
	defer b.store.Close()

	stopWatch, err := b.provider.Watch(os.Getenv("MSE_ENV_FILE"))
	if err != nil {
		log.Warn().Err(err).Msg("Config hot reload disabled")
	} else {
		defer stopWatch()
	}

	router := api.NewRouter(b.store, b.runner, b.registry)
	server := &http.Server{
		Addr:              b.provider.Current().ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func runAssess(cmd *cobra.Command, args []string) error {
	b, err := newBackend()
	if err != nil {
		return err
	}
	defer b.store.Close()

	ctx := cmd.Context()

	exists, err := b.store.HasOrganization(assessOrgID)
	if err != nil {
		return err
	}

	var result *assessment.RunResult
	if exists {
		result, err = b.runner.Refresh(ctx, assessOrgID)
	} else {
		if assessAPIURL == "" || assessAPIKey == "" {
			return fmt.Errorf("organization is not onboarded; --api-url and --api-key are required")
		}
		result, err = b.runner.Onboard(ctx, assessOrgID, assessAPIURL, assessAPIKey)
	}
	if err != nil {
		return err
	}

	fmt.Printf("batch %s written for %d site(s), average score %.2f\n",
		result.BatchID, result.SiteCount, result.AverageScore)
	if len(result.DegradedChecks) > 0 {
		fmt.Printf("degraded checks: %v\n", result.DegradedChecks)
	}
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	b, err := newBackend()
	if err != nil {
		return err
	}
	defer b.store.Close()

	if err := assessment.ValidateOrgID(purgeOrgID); err != nil {
		return err
	}
	if err := b.store.PurgeOrganization(purgeOrgID); err != nil {
		return err
	}

	fmt.Printf("organization %s purged\n", purgeOrgID)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
