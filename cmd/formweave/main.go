package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/formweave/formweave/internal/api"
	"github.com/formweave/formweave/internal/forms"
	"github.com/formweave/formweave/internal/genai"
	"github.com/formweave/formweave/internal/notify"
	"github.com/formweave/formweave/internal/store"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for FormWeave state data
	DefaultStateDir = "/var/lib/formweave"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "formweave.db"
	// DefaultBaseURL is the default externally visible address used in invitation links
	DefaultBaseURL = "http://localhost:8080"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Open the configured store backend
	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Select the invitation transport
	notifier, err := buildNotifier(flags)
	if err != nil {
		slog.Error("Failed to configure notification transport", "error", err)
		os.Exit(1)
	}

	// GenAI is optional: the suggestion endpoint is disabled without a key
	gaClient := buildGenAIClient(flags)

	templates := forms.NewTemplateService(st)
	assignments := forms.NewAssignmentService(st, notifier, *flags.baseURL)

	slog.Info("Bootstrapping FormWeave with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "genai_enabled", gaClient != nil)

	srv := api.NewServer(templates, assignments, gaClient, st, buildAPIOptions(flags)...)
	if err := srv.Run(context.Background()); err != nil {
		slog.Error("FormWeave failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("FormWeave exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL     string
	StateDir        string
	OpenAIKey       string
	APIAddr         string
	BaseURL         string
	NotifyTransport string
}

// Flags holds command line flag values
type Flags struct {
	stateDir        *string
	dbDSN           *string
	openaiKey       *string
	apiAddr         *string
	baseURL         *string
	notifyTransport *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
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
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StateDir:        os.Getenv("FORMWEAVE_STATE_DIR"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		APIAddr:         os.Getenv("API_ADDR"),
		BaseURL:         os.Getenv("FORMWEAVE_BASE_URL"),
		NotifyTransport: os.Getenv("NOTIFY_TRANSPORT"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No FORMWEAVE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("FORMWEAVE_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.NotifyTransport == "" {
		config.NotifyTransport = "smtp"
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"FORMWEAVE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"FORMWEAVE_BASE_URL", config.BaseURL,
		"NOTIFY_TRANSPORT", config.NotifyTransport)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:        flag.String("state-dir", config.StateDir, "state directory for FormWeave data (overrides $FORMWEAVE_STATE_DIR)"),
		dbDSN:           flag.String("db-dsn", config.DatabaseURL, "database DSN for the template store (overrides $DATABASE_URL)"),
		openaiKey:       flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:         flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		baseURL:         flag.String("base-url", config.BaseURL, "externally visible base URL for invitation links (overrides $FORMWEAVE_BASE_URL)"),
		notifyTransport: flag.String("notify-transport", config.NotifyTransport, "invitation transport, smtp or sms (overrides $NOTIFY_TRANSPORT)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"baseURL", *flags.baseURL,
		"notifyTransport", *flags.notifyTransport)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
		slog.Debug("State directory created successfully", "state_dir", stateDir)
	}
	return nil
}

// buildStore opens the store backend matching the configured DSN
func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildNotifier selects the invitation transport
func buildNotifier(flags Flags) (notify.Service, error) {
	if *flags.notifyTransport == "sms" {
		slog.Debug("Configuring Twilio SMS invitation transport")
		return notify.NewTwilioService()
	}
	slog.Debug("Configuring SMTP invitation transport")
	return notify.NewSMTPService()
}

// buildGenAIClient initializes the optional GenAI client
func buildGenAIClient(flags Flags) *genai.Client {
	if *flags.openaiKey != "" {
		os.Setenv("OPENAI_API_KEY", *flags.openaiKey)
	}
	client, err := genai.NewClient()
	if err != nil {
		slog.Warn("GenAI client not configured, field suggestions disabled", "error", err)
		return nil
	}
	return client
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
