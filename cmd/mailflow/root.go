package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/ajramos/mailflow/internal/config"
	"github.com/ajramos/mailflow/internal/db"
	"github.com/ajramos/mailflow/internal/logging"
	"github.com/ajramos/mailflow/internal/services"
	"github.com/ajramos/mailflow/internal/tui"
	"github.com/ajramos/mailflow/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options are the persistent flags shared by every command
type options struct {
	configPath string
	apiURL     string
	logFile    string
	logFileSet bool
	verbose    bool
	noStore    bool
}

// session is everything a command needs to talk to the backend. Service
// notices are printed as they are published.
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *api.Client
	metrics  *api.Metrics
	notifier *services.Notifier

	store   *db.Store
	filters services.FilterStore
	prefs   tui.Preferences

	closers []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func newRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:   "mailflow",
		Short: "Terminal client for the MailFlow email assistant",
		Long: `MailFlow is a terminal client for the MailFlow backend.

Run without a subcommand to open the interactive UI, or use the
subcommands below for scripting.

Quick Start:
  mailflow                               # Open the terminal UI
  mailflow emails --priority high        # List high priority emails
  mailflow drafts generate 42            # Ask the assistant for a reply
  mailflow chat "What needs my attention today?"`,
		Version:       version.GetVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withSession(cmd, func(ctx context.Context, s *session) error {
				return runTUI(ctx, s)
			})
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "Path to JSON configuration file (default: ~/.config/mailflow/config.json)")
	flags.StringVar(&o.apiURL, "api-url", "", "MailFlow backend base URL (overrides config and "+config.EnvAPIURL+")")
	flags.StringVar(&o.logFile, "log-file", "", "Write JSON logs to this file (default ~/.config/mailflow/mailflow.log, empty disables)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&o.noStore, "no-store", false, "Do not open the local preference store")

	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(
		newEmailsCmd(o),
		newActionsCmd(o),
		newProcessCmd(o),
		newDraftsCmd(o),
		newPromptsCmd(o),
		newChatCmd(o),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig resolves the configuration from file, environment and flags
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath(o.configPath))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if o.apiURL != "" {
		cfg.API.BaseURL = o.apiURL
	}
	if o.logFileSet {
		cfg.LogFile = expandPath(o.logFile)
	}
	if o.noStore {
		cfg.Store.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession wires logging, the preference store and the gateway client
func (o *options) openSession(cmd *cobra.Command) (*session, error) {
	if f := cmd.Flag("log-file"); f != nil {
		o.logFileSet = f.Changed
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logPath := cfg.LogPath()
	logger, closeLog, err := logging.New(logPath, cfg.LogLevel, o.verbose)
	if err != nil {
		if o.logFileSet || logPath != config.DefaultLogPath() {
			return nil, err
		}
		// The default log file is best effort.
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: logging disabled: %v\n", err)
		logger, closeLog = logging.Nop(), func() {}
	}
	s := &session{cfg: cfg, logger: logger, closers: []func(){closeLog}}

	if cfg.Store.Enabled {
		path := cfg.StorePath()
		store, err := db.Open(cmd.Context(), path)
		if err != nil {
			// Preferences are optional; everything else works without them.
			logger.Warn("could not open preference store", zap.String("path", path), zap.Error(err))
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not open preference store: %v\n", err)
		} else {
			s.store = store
			s.filters = db.NewFilterStore(store)
			s.prefs = db.NewPreferenceStore(store)
			s.closers = append(s.closers, func() { _ = store.Close() })
		}
	}

	s.metrics = api.NewMetrics()
	client, err := api.NewClient(cfg.API.BaseURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.GetAPITimeout()}),
		api.WithLogger(logger),
		api.WithObserver(s.metrics),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.client = client
	s.notifier = services.NewNotifier(logger)
	s.closers = append(s.closers, s.notifier.Subscribe(func(n services.Notice) {
		w := cmd.OutOrStdout()
		if n.Level >= services.LevelWarning {
			w = cmd.ErrOrStderr()
		}
		printNotice(w, n)
	}))

	logger.Debug("session ready",
		zap.String("api", client.BaseURL()),
		zap.Bool("store", s.store != nil),
		zap.String("command", cmd.CommandPath()),
	)
	return s, nil
}

// withSession runs fn with an open session and always releases it
func (o *options) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	s, err := o.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(cmd.Context(), s)
}

// runTUI opens the terminal UI, serving /metrics alongside it when enabled
func runTUI(ctx context.Context, s *session) error {
	if s.cfg.Metrics.Enabled {
		ln, err := net.Listen("tcp", s.cfg.Metrics.ListenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen for metrics on %s: %w", s.cfg.Metrics.ListenAddr, err)
		}
		defer serveMetrics(ln, s.metrics, s.logger)()
	}

	deps := tui.Deps{
		Gateway: s.client,
		Metrics: s.metrics,
		Logger:  s.logger,
	}
	if s.store != nil {
		deps.Filters = s.filters
		deps.Prefs = s.prefs
	}
	app := tui.NewApp(s.cfg, deps)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		app.Stop()
	}()

	if err := app.Run(); err != nil {
		return fmt.Errorf("error running application: %w", err)
	}
	return nil
}

// serveMetrics exposes the gateway registry on ln until stop is called
func serveMetrics(ln net.Listener, m *api.Metrics, logger *zap.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", zap.Error(err))
		} else {
			logger.Info("metrics server stopped")
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersionString())
			return err
		},
	}
}
