package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/mkovardin/fleetwatch/internal/logger"
)

const (
	defaultListenAddr       = "localhost:8000"
	defaultLoggingLevel     = logger.LevelInfo
	defaultEnvironment      = logger.EnvProduction
	defaultTokenIssuer      = "fleetwatch"
	defaultTokenAudience    = "fleetwatch-api"
	defaultAccessTTLMinutes = 30
	defaultRefreshTTLDays   = 14
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the fleetwatch service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Issuer and audience stamped into access tokens
	TokenIssuer   string
	TokenAudience string

	// Token lifetimes
	AccessTTLMinutes int
	RefreshTTLDays   int

	// External directory (optional; empty base URL disables federation)
	DirectoryBaseURL      string
	DirectoryClientID     string
	DirectoryClientSecret string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:         defaultLoggingLevel,
		ListenAddr:       defaultListenAddr,
		Environment:      defaultEnvironment,
		TokenIssuer:      defaultTokenIssuer,
		TokenAudience:    defaultTokenAudience,
		AccessTTLMinutes: defaultAccessTTLMinutes,
		RefreshTTLDays:   defaultRefreshTTLDays,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	var parseErr error

	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			parsed, err := strconv.Atoi(value)
			if err != nil {
				parseErr = errors.Join(parseErr, fmt.Errorf("invalid integer value %q: %w", value, err))
				return
			}
			*o = parsed
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":             setString(&c.ListenAddr),
		"DATABASE_URI":            setString(&c.DatabaseDSN),
		"SECRET_KEY":              setString(&c.SecretKey),
		"LOG_LEVEL":               setString(&c.LogLevel),
		"ENVIRONMENT":             setString(&c.Environment),
		"TOKEN_ISSUER":            setString(&c.TokenIssuer),
		"TOKEN_AUDIENCE":          setString(&c.TokenAudience),
		"ACCESS_TOKEN_MINUTES":    setInt(&c.AccessTTLMinutes),
		"REFRESH_TOKEN_DAYS":      setInt(&c.RefreshTTLDays),
		"DIRECTORY_BASE_URL":      setString(&c.DirectoryBaseURL),
		"DIRECTORY_CLIENT_ID":     setString(&c.DirectoryClientID),
		"DIRECTORY_CLIENT_SECRET": setString(&c.DirectoryClientSecret),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}

	return parseErr
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("fleetwatch", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVar(&c.TokenIssuer, "token-issuer", c.TokenIssuer, "Issuer claim for access tokens")
	fs.StringVar(&c.TokenAudience, "token-audience", c.TokenAudience, "Audience claim for access tokens")
	fs.IntVar(&c.AccessTTLMinutes, "access-minutes", c.AccessTTLMinutes, "Access token lifetime in minutes")
	fs.IntVar(&c.RefreshTTLDays, "refresh-days", c.RefreshTTLDays, "Refresh token lifetime in days")
	fs.StringVar(&c.DirectoryBaseURL, "directory-url", c.DirectoryBaseURL, "External directory base URL (empty disables federation)")
	fs.StringVar(&c.DirectoryClientID, "directory-client-id", c.DirectoryClientID, "External directory OAuth client id")
	fs.StringVar(&c.DirectoryClientSecret, "directory-client-secret", c.DirectoryClientSecret, "External directory OAuth client secret")

	return fs.Parse(args)
}
