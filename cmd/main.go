package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"maitred/internal/agents"
	"maitred/internal/config"
	"maitred/internal/database"
	"maitred/internal/evaluation"
	"maitred/internal/models"
	"maitred/internal/models/providers"
	"maitred/internal/monitoring"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	cfg    *config.Config

	configFile  string
	envFile     string
	verbose     bool
	catalogPath string
	policyName  string
	modelName   string
	metricsAddr string
	ledgerDSN   string
	ordersLimit int
	scenarios   string
	scenarioID  string
)

// errReported marks errors whose message was already shown to the user
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:   "maitred",
	Short: "Chat with a restaurant ordering assistant",
	Long: `maitred is a console ordering assistant. It loads a menu catalog, chats
with the customer through a chat completion model and reports the order
when the customer leaves.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile, envFile)
		if err != nil {
			return err
		}
		applyFlags()

		logger, err = newLogger(cfg.LogLevel, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runChatCommand,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an ordering session on the console",
	RunE:  runChatCommand,
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Print the menu catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		menu, err := loadMenu(cfg.Catalog, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), menu.Format())
		return err
	},
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List recent orders stored in the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Ledger.DSN == "" {
			return fmt.Errorf("no ledger configured: set ledger.dsn or --ledger-dsn")
		}
		ledger, err := database.Open(cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			return err
		}
		defer ledger.Close()

		records, err := ledger.RecentOrders(cmd.Context(), ordersLimit)
		if err != nil {
			return err
		}
		return printOrders(cmd.OutOrStdout(), records)
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Replay scripted customers against the model and score their orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		if errs := cfg.Validate(); len(errs) > 0 {
			return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
		}
		return runEval(cmd.Context(), cfg, nil, scenarios, scenarioID, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading variables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Menu catalog file (.json, .yaml)")
	rootCmd.PersistentFlags().StringVar(&ledgerDSN, "ledger-dsn", "", "Order ledger data source (enables the ledger)")

	for _, cmd := range []*cobra.Command{rootCmd, chatCmd} {
		cmd.Flags().StringVar(&policyName, "policy", "", "Action policy: structured or keyword")
		cmd.Flags().StringVar(&modelName, "model", "", "Completion model identifier")
		cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve metrics on this address (enables metrics)")
	}
	ordersCmd.Flags().IntVarP(&ordersLimit, "limit", "n", 20, "Maximum number of orders to list")

	evalCmd.Flags().StringVar(&policyName, "policy", "", "Action policy: structured or keyword")
	evalCmd.Flags().StringVar(&modelName, "model", "", "Completion model identifier")
	evalCmd.Flags().StringVar(&scenarios, "scenarios", "scenarios.yaml", "YAML file with scripted customers")
	evalCmd.Flags().StringVar(&scenarioID, "scenario", "", "Run only this scenario")

	rootCmd.AddCommand(chatCmd, menuCmd, ordersCmd, evalCmd)
}

func runChatCommand(cmd *cobra.Command, args []string) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// a second Ctrl-C gets the default behaviour and kills the process
		<-ctx.Done()
		stop()
	}()

	return interrupted(runChat(ctx, cfg, nil, cmd.InOrStdin(), cmd.OutOrStdout()), cmd.OutOrStdout())
}

// interrupted turns a cancelled session into a quiet non-zero exit
func interrupted(err error, out io.Writer) error {
	if !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(out)
	logger.Info("session interrupted")
	return fmt.Errorf("%w: %v", errReported, err)
}

func applyFlags() {
	if catalogPath != "" {
		cfg.Catalog = catalogPath
	}
	if policyName != "" {
		cfg.Policy = policyName
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = metricsAddr
	}
	if ledgerDSN != "" {
		cfg.Ledger.DSN = ledgerDSN
	}
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	return zcfg.Build()
}

// runChat wires one console session. A nil provider is built from cfg.
func runChat(ctx context.Context, cfg *config.Config, provider providers.Provider, in io.Reader, out io.Writer) error {
	if provider == nil {
		if err := cfg.RequireCredential(); err != nil {
			fmt.Fprintf(out, "Error: %s not found. Please set it in the .env file.\n", cfg.CredentialEnv())
			return fmt.Errorf("%w: %v", errReported, err)
		}
	}

	fmt.Fprintln(out, "Restaurant Chatbot is starting...")

	menu, err := loadMenu(cfg.Catalog, out)
	if err != nil {
		return err
	}

	if provider == nil {
		provider, err = newProvider(cfg)
		if err != nil {
			return err
		}
	}

	policy, err := agents.NewPolicy(agents.PolicyType(cfg.Policy), provider, logger, cfg.ApplyActions)
	if err != nil {
		return err
	}

	monitor := monitoring.NewMonitor()
	opts := []agents.WaiterOption{agents.WithMonitor(monitor)}

	if cfg.Metrics.Enabled {
		server := monitoring.NewServer(cfg.Metrics.Addr, monitor)
		go func() {
			logger.Info("starting metrics server", zap.String("addr", cfg.Metrics.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown error", zap.Error(err))
			}
		}()
	}

	if cfg.Ledger.DSN != "" {
		ledger, err := database.Open(cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			return err
		}
		defer ledger.Close()
		opts = append(opts, agents.WithRecorder(ledger))
	}

	waiter := agents.NewWaiter(menu, policy, logger, opts...)
	logger.Debug("session started", zap.String("session", waiter.SessionID()), zap.String("catalog", cfg.Catalog))
	return waiter.Serve(ctx, in, out)
}

// runEval prints the evaluation results as JSON. A nil provider is built from cfg.
func runEval(ctx context.Context, cfg *config.Config, provider providers.Provider, path, only string, out io.Writer) error {
	if provider == nil {
		if err := cfg.RequireCredential(); err != nil {
			return err
		}
		var err error
		if provider, err = newProvider(cfg); err != nil {
			return err
		}
	}

	menu, err := loadMenu(cfg.Catalog, out)
	if err != nil {
		return err
	}
	list, err := evaluation.LoadScenarios(path)
	if err != nil {
		return err
	}
	policy, err := agents.NewPolicy(agents.PolicyType(cfg.Policy), provider, logger, cfg.ApplyActions)
	if err != nil {
		return err
	}

	evaluator := evaluation.NewEvaluator(menu, list, logger)
	if only != "" && !evaluator.HasScenario(only) {
		return fmt.Errorf("%w: %s (in %s)", evaluation.ErrScenarioNotFound, only, path)
	}

	var results []*evaluation.EvaluationResult
	if only != "" {
		result, err := evaluator.EvaluateModel(ctx, cfg.Model, policy, only)
		if err != nil {
			return err
		}
		results = append(results, result)
	} else if results, err = evaluator.EvaluateAll(ctx, cfg.Model, policy); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// loadMenu prints the startup message for catalog failures
func loadMenu(path string, out io.Writer) (*models.Menu, error) {
	menu, err := models.LoadMenu(path)
	switch {
	case err == nil:
		return menu, nil
	case errors.Is(err, models.ErrCatalogNotFound):
		fmt.Fprintf(out, "Error: %s not found.\n", path)
	case errors.Is(err, models.ErrCatalogMalformed):
		format := "JSON"
		if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
			format = "YAML"
		}
		fmt.Fprintf(out, "Error: %s contains invalid %s.\n", path, format)
	default:
		fmt.Fprintf(out, "Error: %v\n", err)
	}
	logger.Debug("catalog load failed", zap.Error(err))
	return nil, fmt.Errorf("%w: %v", errReported, err)
}

func newProvider(cfg *config.Config) (providers.Provider, error) {
	opts := providers.DefaultOptions()
	opts.Model = cfg.Model
	opts.MaxTokens = cfg.MaxTokens
	opts.Temperature = cfg.Temperature

	switch cfg.Provider {
	case config.ProviderAzure:
		return providers.NewAzureOpenAIProvider(cfg.Azure.Endpoint, cfg.Azure.APIKey, cfg.Azure.Deployment, opts)
	default:
		return providers.NewOpenAIProvider(cfg.OpenAIKey, cfg.BaseURL, opts)
	}
}

func printOrders(out io.Writer, records []models.OrderRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "No orders recorded.")
		return err
	}
	for _, r := range records {
		names := make([]string, len(r.Items))
		for i, item := range r.Items {
			names[i] = item.Name
			if names[i] == "" {
				names[i] = "#" + item.ItemID
			}
		}
		if _, err := fmt.Fprintf(out, "%s  %s  %-10s $%s  %s\n",
			r.TimeEnded.Format(time.RFC3339), r.SessionID, r.Policy,
			models.FormatPrice(r.Total), strings.Join(names, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	logger = zap.NewNop()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
