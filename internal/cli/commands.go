package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/StockPulse/config"
	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/display"
	"github.com/dyike/StockPulse/internal/trading"
)

// Version is overridden at build time with -ldflags.
var Version = "0.1.0"

// rootState carries what persistent flags resolve to for subcommands.
type rootState struct {
	configPath string
	debug      bool
	manager    *config.Manager
	opts       appOptions
	prompter   prompter
}

// config returns the effective configuration for this invocation.
func (s *rootState) config() config.Config {
	cfg := s.manager.Effective()
	if s.debug {
		cfg.Debug = true
	}
	return cfg
}

func (s *rootState) newApp(ctx context.Context, cmd *cobra.Command, history bool) (*app, error) {
	return s.build(ctx, cmd, s.config(), history)
}

func (s *rootState) build(ctx context.Context, cmd *cobra.Command, cfg config.Config, history bool) (*app, error) {
	if s.debug {
		cfg.Debug = true
	}
	opts := s.opts
	opts.history = history
	if opts.out == nil {
		opts.out = cmd.OutOrStdout()
	}
	return newApp(ctx, cfg, opts)
}

func (s *rootState) displayFor(cmd *cobra.Command) *display.ResultsDisplay {
	out := s.opts.out
	if out == nil {
		out = cmd.OutOrStdout()
	}
	return display.NewResultsDisplay(out)
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootState{})
}

func newRootCmd(state *rootState) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stockpulse",
		Short: "StockPulse - stock ticker analysis",
		Long: `StockPulse looks up a US stock, pulls its fundamentals, insider activity and
recent prices, compares it against sector averages and asks a language model
for a short recommendation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()
			var mopts []config.ManagerOption
			if state.configPath != "" {
				mopts = append(mopts, config.WithConfigPath(state.configPath))
			}
			m, err := config.NewManager(mopts...)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			state.manager = m
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(cmd, state)
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd(state))
	rootCmd.AddCommand(newSearchCmd(state))
	rootCmd.AddCommand(newInteractiveCmd(state))
	rootCmd.AddCommand(newHistoryCmd(state))
	rootCmd.AddCommand(newConfigCmd(state))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().BoolVar(&state.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&state.configPath, "config", "", "Configuration file path")

	return rootCmd
}

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd(state *rootState) *cobra.Command {
	var (
		save   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Analyze a stock ticker",
		Long: `Fetch overview, insider transactions and daily prices for SYMBOL, compute
valuation metrics and print the report.
Example: stockpulse analyze AAPL --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := state.newApp(ctx, cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if !asJSON {
				a.session.Observe(func(r trading.Result) {
					if r.Phase == trading.PhaseAnalyzing {
						a.display.DisplayResult(r)
					}
				})
			}
			res, path, err := a.analyze(ctx, args[0], save)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			a.display.DisplayReport(res.Report)
			if path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Write the report as JSON into the results directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newSearchCmd(state *rootState) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search US symbols by keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := state.newApp(ctx, cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			matches, err := a.session.Search(ctx, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), matches)
			}
			a.display.DisplayMatches(matches)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print matches as JSON")
	return cmd
}

func newInteractiveCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Search and analyze interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(cmd, state)
		},
	}
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "StockPulse v%s\n", Version)
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(state *rootState) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cmd.OutOrStdout(), state.manager.Path(), state.config())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.OutOrStdout(), state.config())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the configuration file and data directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := state.manager.Get()
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file: %s\n", state.manager.Path())
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Change values in the configuration file",
		Long: "Change values in the configuration file. A running interactive session\n" +
			"picks the change up before its next prompt.\n\nKeys: " + strings.Join(config.Keys(), ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := state.manager.Set(args...); err != nil {
				return fmt.Errorf("config set: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", state.manager.Path())
			return nil
		},
	})

	return configCmd
}

// showConfig displays the current configuration
func showConfig(w io.Writer, path string, cfg config.Config) {
	fmt.Fprintln(w, "📋 Current StockPulse Configuration:")
	fmt.Fprintln(w, "═══════════════════════════════════════")
	fmt.Fprintf(w, "Config File:          %s\n", path)
	fmt.Fprintf(w, "Results Directory:    %s\n", cfg.ResultsDir)
	fmt.Fprintf(w, "Cache Directory:      %s\n", cfg.DataCacheDir)
	fmt.Fprintf(w, "History Database:     %s\n", cfg.HistoryDBPath)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Alpha Vantage URL:    %s\n", cfg.AlphaVantageBaseURL)
	fmt.Fprintf(w, "Rate Limit (req/min): %d\n", cfg.ProviderRateLimit)
	fmt.Fprintf(w, "HTTP Timeout:         %s\n", cfg.HTTPTimeout())
	fmt.Fprintf(w, "Insider Source:       %s\n", cfg.InsiderSource)
	fmt.Fprintf(w, "Price Source:         %s\n", cfg.PriceSource)
	fmt.Fprintf(w, "Cache Enabled:        %t\n", cfg.CacheEnabled)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Narrative Provider:   %s\n", cfg.NarrativeProvider)
	fmt.Fprintf(w, "Search Debounce:      %s\n", cfg.SearchDebounce())
	fmt.Fprintf(w, "Log Level:            %s\n", cfg.LogLevel)
	fmt.Fprintf(w, "Debug Mode:           %t\n", cfg.Debug)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🔌 API Configuration:")
	fmt.Fprintln(w, "─────────────────────")
	for _, k := range apiKeys(cfg) {
		status := "❌ Not configured"
		if k.set {
			status = "✅ Configured"
		}
		fmt.Fprintf(w, "%-22s%s\n", k.name+":", status)
	}
}

type apiKey struct {
	name     string
	set      bool
	required bool
}

// apiKeys lists credentials and whether the current selection needs them.
func apiKeys(cfg config.Config) []apiKey {
	return []apiKey{
		{"Alpha Vantage", cfg.AlphaVantageAPIKey != "", true},
		{"Finnhub", cfg.FinnhubAPIKey != "", cfg.InsiderSource == consts.SourceFinnhub},
		{"Gemini", cfg.GeminiAPIKey != "", cfg.NarrativeProvider == consts.NarrativeGemini || cfg.NarrativeProvider == consts.NarrativeGeminiSDK},
		{"OpenAI", cfg.OpenAIAPIKey != "", cfg.NarrativeProvider == consts.NarrativeOpenAI},
		{"DeepSeek", cfg.DeepSeekAPIKey != "", cfg.NarrativeProvider == consts.NarrativeDeepSeek},
	}
}

// validateConfig validates the configuration and reports missing credentials.
func validateConfig(w io.Writer, cfg config.Config) error {
	fmt.Fprintln(w, "🔍 Validating StockPulse Configuration...")

	fmt.Fprint(w, "⚙️  Checking configuration values... ")
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(w, "❌")
		return err
	}
	fmt.Fprintln(w, "✅")

	fmt.Fprint(w, "📁 Checking directories... ")
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintln(w, "❌")
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Fprintln(w, "✅")

	fmt.Fprint(w, "🔑 Checking API keys... ")
	var warnings []string
	for _, k := range apiKeys(cfg) {
		if k.required && !k.set {
			warnings = append(warnings, k.name+" API key not configured")
		}
	}
	if len(warnings) == 0 {
		fmt.Fprintln(w, "✅")
		return nil
	}
	fmt.Fprintln(w, "⚠️")
	for _, warning := range warnings {
		fmt.Fprintf(w, "  ⚠️  %s\n", warning)
	}
	fmt.Fprintln(w, "Affected report sections will fall back to N/A.")
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitOnError prints err in the shared style and exits.
func exitOnError(err error, context string) {
	display.DisplayError(err, context)
	os.Exit(1)
}
