package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/blogdesk/internal/config"
	"github.com/existflow/blogdesk/internal/logger"
	"github.com/existflow/blogdesk/internal/notify"
	"github.com/existflow/blogdesk/internal/tui"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	logFile    string
	logConsole bool
	apiURL     string

	// appConfig is loaded once per invocation by the root command
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "blogdesk",
	Short: "BlogDesk - Terminal admin for the site blog",
	Long: `BlogDesk is the admin side of the site's blog: log in with the admin key,
watch the dashboard and create, edit or delete posts.

Run 'blogdesk' without arguments to launch the interactive TUI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from file (or defaults if not exists)
		cfg, err := config.Load()
		if err != nil {
			logger.Warn("Failed to load config, using defaults", logger.Err(err))
			cfg = config.DefaultConfig()
		}

		// Override with CLI flags if provided
		configChanged := false
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
			configChanged = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
			configChanged = true
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
			configChanged = true
		}
		if cmd.Flags().Changed("api-url") {
			cfg.APIURL = apiURL
			configChanged = true
		}

		// Save config if changed via CLI flags
		if configChanged {
			if err := cfg.Save(); err != nil {
				logger.Warn("Failed to save config", logger.Err(err))
			}
		}

		logConfig := logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			FilePath:   cfg.LogFile,
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxAge:     7,
			MaxBackups: 5,
			Console:    cfg.LogConsole,
		}

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		appConfig = cfg
		logger.Info("BlogDesk started", logger.F("command", cmd.Name()), logger.F("api_url", cfg.APIURL))
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		// auth, the watchdog and the workflow all report through one channel the TUI drains
		notices := make(notify.Chan, 16)

		app, err := openApp(context.Background(), appConfig, notices)
		if err != nil {
			return err
		}
		defer func() {
			app.Close()
			logger.Info("Local storage closed")
		}()

		logger.Info("Launching TUI")
		m := tui.NewModel(tui.Deps{
			Auth:          app.auth,
			Guard:         app.guard,
			Watchdog:      app.watchdog,
			Posts:         app.posts,
			Stats:         app.posts,
			Notifier:      notices,
			Notices:       notices,
			ConfirmDelete: app.cfg.ConfirmDelete,
			Timeout:       app.cfg.RequestTimeout,
		})
		p := tea.NewProgram(m, tea.WithAltScreen())

		if _, err := p.Run(); err != nil {
			logger.Error("TUI error", logger.Err(err))
			return fmt.Errorf("failed to run TUI: %w", err)
		}

		logger.Info("TUI exited normally")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("BlogDesk exiting", logger.F("command", cmd.Name()))
		logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Base URL of the site API (saved to config)")

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(routesCmd)
}
