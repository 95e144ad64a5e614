// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Workspace WorkspaceConfig
	Device    DeviceConfig
	Dropbox   DropboxConfig
	Cache     CacheConfig
	Sync      SyncConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// WorkspaceConfig holds credentials and collection IDs for the hosted
// workspace the sync writes into.
type WorkspaceConfig struct {
	Token                   string
	BooksCollectionID       string
	AnnotationsCollectionID string
}

// DeviceConfig holds the e-reader database location.
type DeviceConfig struct {
	// DatabasePath points at the device's sqlite library, typically
	// KOBOeReader/.kobo/KoboReader.sqlite on the mounted device.
	DatabasePath string
}

// DropboxConfig holds cloud file store credentials for EPUB enrichment.
// All fields optional; enrichment is skipped when AppKey is empty.
type DropboxConfig struct {
	AppKey     string
	AppSecret  string
	TokenFile  string
	FolderPath string
}

// CacheConfig holds the local metadata cache location.
type CacheConfig struct {
	Path string
}

// SyncConfig holds knobs for the reconciliation run itself.
type SyncConfig struct {
	// Workers is the number of concurrent record writers (default: 4).
	Workers int
	// PageWorkers is the number of books whose pages are rebuilt
	// concurrently (default: 2).
	PageWorkers int
	// ForceUpdate bypasses fingerprint comparison for unlocked records.
	ForceUpdate bool
	// DryRun reports every decision without performing remote writes.
	DryRun bool
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	deviceDB := flag.String("device-db", "", "Path to the e-reader sqlite database")
	booksCollection := flag.String("books-collection", "", "Workspace collection ID for books")
	annotationsCollection := flag.String("annotations-collection", "", "Workspace collection ID for annotations")
	dropboxFolder := flag.String("dropbox-folder", "", "Cloud folder containing EPUB files")
	dropboxTokenFile := flag.String("dropbox-token-file", "", "Path to the stored Dropbox refresh token")
	cachePath := flag.String("cache-path", "", "Path for the local metadata cache")
	workers := flag.String("workers", "", "Concurrent record writers (default: 4)")
	pageWorkers := flag.String("page-workers", "", "Concurrent page rebuilds (default: 2)")
	force := flag.Bool("force", false, "Update records even when fingerprints match")
	dryRun := flag.Bool("dry-run", false, "Report decisions without writing to the workspace")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Workspace: WorkspaceConfig{
			Token:                   getConfigValue("", "WORKSPACE_API_TOKEN", ""),
			BooksCollectionID:       getConfigValue(*booksCollection, "BOOKS_COLLECTION_ID", ""),
			AnnotationsCollectionID: getConfigValue(*annotationsCollection, "ANNOTATIONS_COLLECTION_ID", ""),
		},
		Device: DeviceConfig{
			DatabasePath: getConfigValue(*deviceDB, "DEVICE_DB_PATH", ""),
		},
		Dropbox: DropboxConfig{
			AppKey:     getConfigValue("", "DROPBOX_APP_KEY", ""),
			AppSecret:  getConfigValue("", "DROPBOX_APP_SECRET", ""),
			TokenFile:  getConfigValue(*dropboxTokenFile, "DROPBOX_TOKEN_FILE", ".dropbox_token.json"),
			FolderPath: getConfigValue(*dropboxFolder, "DROPBOX_FOLDER", ""),
		},
		Cache: CacheConfig{
			Path: getConfigValue(*cachePath, "CACHE_PATH", ""),
		},
		Sync: SyncConfig{
			Workers:     getIntConfigValue(*workers, "SYNC_WORKERS", 4),
			PageWorkers: getIntConfigValue(*pageWorkers, "SYNC_PAGE_WORKERS", 2),
			ForceUpdate: *force || getBoolConfigValue("", "FORCE_UPDATE", false),
			DryRun:      *dryRun || getBoolConfigValue("", "DRY_RUN", false),
		},
	}

	// Expand filesystem paths.
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Workspace.Token == "" {
		return errors.New("WORKSPACE_API_TOKEN is required")
	}
	if c.Workspace.BooksCollectionID == "" {
		return errors.New("BOOKS_COLLECTION_ID is required")
	}
	if c.Workspace.AnnotationsCollectionID == "" {
		return errors.New("ANNOTATIONS_COLLECTION_ID is required")
	}
	// The device path is not checked here. Remote-only maintenance runs
	// never open the e-reader database, so the provider that does open
	// it enforces the setting instead.

	// Dropbox credentials are optional as a set, but partial credentials
	// are almost always a misconfigured .env file.
	if (c.Dropbox.AppKey == "") != (c.Dropbox.AppSecret == "") {
		return errors.New("DROPBOX_APP_KEY and DROPBOX_APP_SECRET must be set together")
	}

	if c.Sync.Workers < 1 {
		return fmt.Errorf("invalid worker count: %d (must be at least 1)", c.Sync.Workers)
	}
	if c.Sync.PageWorkers < 1 {
		return fmt.Errorf("invalid page worker count: %d (must be at least 1)", c.Sync.PageWorkers)
	}

	return nil
}

// EnrichmentEnabled reports whether cloud EPUB enrichment is configured.
func (c *Config) EnrichmentEnabled() bool {
	return c.Dropbox.AppKey != "" && c.Dropbox.FolderPath != ""
}

// expandPaths expands ~ and relative paths in all filesystem settings.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Device.DatabasePath, "")
	if err != nil {
		return fmt.Errorf("invalid device database path: %w", err)
	}
	c.Device.DatabasePath = expanded

	defaultCache := filepath.Join(homeDir, ".shelfsync", "cache")
	expanded, err = expandPath(c.Cache.Path, defaultCache)
	if err != nil {
		return fmt.Errorf("invalid cache path: %w", err)
	}
	c.Cache.Path = expanded

	expanded, err = expandPath(c.Dropbox.TokenFile, "")
	if err != nil {
		return fmt.Errorf("invalid token file path: %w", err)
	}
	c.Dropbox.TokenFile = expanded

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
