package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dusk-indust/appealdraft/internal/agent"
	"github.com/dusk-indust/appealdraft/internal/config"
	"github.com/dusk-indust/appealdraft/internal/credstore"
	"github.com/dusk-indust/appealdraft/internal/deadline"
	"github.com/dusk-indust/appealdraft/internal/logging"
	"github.com/dusk-indust/appealdraft/internal/orchestrator"
	"github.com/dusk-indust/appealdraft/internal/provider"
	"github.com/dusk-indust/appealdraft/internal/tracer"
)

// version is set by goreleaser at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "appealdraft",
	Short: "Draft appeals against Spanish traffic fines",
	Long: `appealdraft asks several LLM providers in parallel to read a traffic fine,
draft an administrative appeal, and merges their drafts into one document
together with the filing deadline and submission instructions.

Provider keys are read from the environment (OPENAI_API_KEY, GEMINI_API_KEY,
DEEPSEEK_API_KEY, GROQ_API_KEY, OPENROUTER_API_KEY) or from the local store
managed with 'appealdraft credentials'.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("APPEALDRAFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config-dir", "c", ".", "directory holding appealdraft.yml")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: json or console")
	rootCmd.PersistentFlags().String("credentials-db", "", "path to the local credential store")
	rootCmd.PersistentFlags().String("deadline-rules", "", "YAML file overriding the deadline rules")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("config-dir", rootCmd.PersistentFlags().Lookup("config-dir"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("credentials-db", rootCmd.PersistentFlags().Lookup("credentials-db"))
	_ = viper.BindPFlag("deadline-rules", rootCmd.PersistentFlags().Lookup("deadline-rules"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(draftCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(deadlineCmd())
	rootCmd.AddCommand(agentsCmd())
	rootCmd.AddCommand(credentialsCmd())
	rootCmd.AddCommand(initCmd())
}

// loadConfig reads appealdraft.yml and applies flag and APPEALDRAFT_*
// environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config-dir"))
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := viper.GetString("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if v := viper.GetString("credentials-db"); v != "" {
		cfg.Credentials.Path = v
	}
	if v := viper.GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if v := viper.GetString("strategy"); v != "" {
		cfg.Pipeline.Strategy = v
	}
	if v := viper.GetString("deadline-rules"); v != "" {
		rules, err := deadline.LoadRules(v)
		if err != nil {
			return nil, err
		}
		cfg.Deadline = rules
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app holds the services shared by every command that drafts or serves.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *credstore.SQLiteStore
	creds     agent.CredentialSource
	registry  *agent.Registry
	deadlines *deadline.Calculator
	shutdown  func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	shutdown, err := tracer.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	store, err := credstore.Open(cfg.Credentials.Path)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		creds:     credstore.ChainSource{credstore.NewEnvSource(nil), store},
		registry:  registry,
		deadlines: deadline.NewCalculator(cfg.Deadline),
		shutdown:  shutdown,
	}, nil
}

// adapter builds the vendor dispatcher, guarded when resilience is configured.
func (a *app) adapter() provider.Adapter {
	var adapter provider.Adapter = provider.NewStandardDispatcher(provider.NewHTTPClient(a.cfg.HTTP), a.logger)
	if a.cfg.Resilience.Enabled() {
		adapter = provider.NewGuard(adapter, a.cfg.Resilience, a.logger)
	}
	return adapter
}

func (a *app) pipeline() *orchestrator.Pipeline {
	return orchestrator.NewPipeline(a.cfg.Orchestrator(), a.registry, a.creds, a.adapter(), a.deadlines, a.logger)
}

func (a *app) Close() {
	_ = a.shutdown(context.Background())
	_ = a.store.Close()
	_ = a.logger.Sync()
}
