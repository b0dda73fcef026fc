package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/xminit/supportcore/internal/api"
	"github.com/xminit/supportcore/internal/engine"
	"github.com/xminit/supportcore/internal/flow"
	"github.com/xminit/supportcore/internal/genai"
	"github.com/xminit/supportcore/internal/lockfile"
	"github.com/xminit/supportcore/internal/signals"
	"github.com/xminit/supportcore/internal/store"
	"github.com/xminit/supportcore/internal/suggest"
	"github.com/xminit/supportcore/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SupportCore state data
	DefaultStateDir = "/var/lib/supportcore"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "supportcore.db"
	// DefaultAPIAddr is the default API listen address
	DefaultAPIAddr = ":8080"
	// DefaultLocale is used when neither hint nor script detection decides
	DefaultLocale = "en"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", *flags.stateDir)
		os.Exit(1)
	}

	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	eng := buildEngine(flags, st)
	server := api.NewServer(eng, st, *flags.apiAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping SupportCore", "api_addr", *flags.apiAddr, "state_dir", *flags.stateDir)
	if err := server.Run(ctx); err != nil {
		slog.Error("SupportCore failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SupportCore exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL      string
	StateDir         string
	OpenAIKey        string
	APIAddr          string
	DefaultLocale    string
	KnowledgeTimeout time.Duration
	Debug            bool
}

// Flags holds command line flag values
type Flags struct {
	stateDir         *string
	dbDSN            *string
	openaiKey        *string
	apiAddr          *string
	defaultLocale    *string
	knowledgeTimeout *time.Duration
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("SUPPORTCORE_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("SUPPORTCORE_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		APIAddr:       os.Getenv("API_ADDR"),
		DefaultLocale: os.Getenv("SUPPORTCORE_DEFAULT_LOCALE"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SUPPORTCORE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}
	if config.DefaultLocale == "" {
		config.DefaultLocale = DefaultLocale
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	config.KnowledgeTimeout = suggest.DefaultLookupTimeout
	if raw := os.Getenv("SUPPORTCORE_KNOWLEDGE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			config.KnowledgeTimeout = d
		} else {
			slog.Warn("Invalid SUPPORTCORE_KNOWLEDGE_TIMEOUT, using default", "value", raw)
		}
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SUPPORTCORE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"SUPPORTCORE_DEFAULT_LOCALE", config.DefaultLocale,
		"SUPPORTCORE_KNOWLEDGE_TIMEOUT", config.KnowledgeTimeout)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:         flag.String("state-dir", config.StateDir, "Directory for state data"),
		dbDSN:            flag.String("db-dsn", config.DatabaseURL, "Database DSN (SQLite file path or PostgreSQL URL)"),
		openaiKey:        flag.String("openai-key", config.OpenAIKey, "OpenAI API key (empty disables the GenAI paths)"),
		apiAddr:          flag.String("api-addr", config.APIAddr, "API listen address"),
		defaultLocale:    flag.String("default-locale", config.DefaultLocale, "Fallback reply locale"),
		knowledgeTimeout: flag.Duration("knowledge-timeout", config.KnowledgeTimeout, "Timeout for external source lookups"),
	}
	flag.Parse()
	return flags
}

// openStore selects the backend by DSN type.
func openStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildEngine wires the turn pipeline. Without an OpenAI key the engine runs
// fully deterministic: pattern extraction, no source lookups, canned general
// replies.
func buildEngine(flags Flags, st store.Store) *engine.Engine {
	stateManager := flow.NewStoreBasedStateManager(st)
	localeDet := signals.NewScriptDetector(*flags.defaultLocale)
	patterns := signals.NewPatternExtractor()

	var extractor signals.Extractor = patterns
	var knowledge suggest.KnowledgeSource
	var responder engine.Responder

	if *flags.openaiKey != "" {
		client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			slog.Warn("GenAI client unavailable, running with deterministic fallbacks", "error", err)
		} else {
			extractor = signals.NewGenAIExtractor(client, patterns)
			knowledge = suggest.NewGenAIKnowledgeSource(client)
			responder = engine.NewGenAIResponder(client)
			slog.Debug("GenAI paths enabled")
		}
	} else {
		slog.Info("No OpenAI API key configured, GenAI paths disabled")
	}

	generator := suggest.NewGenerator(knowledge, *flags.knowledgeTimeout)
	recoveryFlow := flow.NewRecoveryFlow(stateManager, generator)
	return engine.NewEngine(extractor, localeDet, recoveryFlow, stateManager, responder, st)
}
