package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tabletap/gateway/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultUpstreamURL  = "http://localhost:4000"
	defaultFrontendURL  = "http://localhost:3000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address the gateway listens on
	ListenAddr string

	// Base URL of the upstream restaurant API
	UpstreamURL string

	// URL of the upstream push channel (ws:// or wss://).
	// Empty disables the push listener.
	PushURL string

	// Origin of the frontend the gateway proxies page requests to
	FrontendURL string

	// Redis address for the shared credential mirror.
	// Empty keeps the mirror in process memory.
	RedisAddr string

	// Credentials of the gateway's own service account on the upstream
	// API, used to authenticate the push channel
	ServiceEmail    string
	ServicePassword string

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		UpstreamURL: defaultUpstreamURL,
		FrontendURL: defaultFrontendURL,
		Environment: defaultEnvironment,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":       setString(&c.ListenAddr),
		"UPSTREAM_API_URL":  setString(&c.UpstreamURL),
		"UPSTREAM_PUSH_URL": setString(&c.PushURL),
		"FRONTEND_URL":      setString(&c.FrontendURL),
		"REDIS_ADDRESS":     setString(&c.RedisAddr),
		"SERVICE_EMAIL":     setString(&c.ServiceEmail),
		"SERVICE_PASSWORD":  setString(&c.ServicePassword),
		"LOG_LEVEL":         setString(&c.LogLevel),
		"ENVIRONMENT":       setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("gateway", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.UpstreamURL, "upstream", "u", c.UpstreamURL, "Upstream API base URL")
	fs.StringVarP(&c.PushURL, "push", "p", c.PushURL, "Upstream push channel URL")
	fs.StringVarP(&c.FrontendURL, "frontend", "f", c.FrontendURL, "Frontend origin for page requests")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address for the credential mirror")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
