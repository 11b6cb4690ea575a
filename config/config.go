// Package config provides runtime configuration values for the service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	DefaultOwnerWalletAddress = "0x8d5c4b91b94347a3e878783472bde6456565ac74786411516e87a685778841a5"
	DefaultWalletAddress      = "0x3b7e0f5d2c9a41e8b6d47f20c5a9e13d8f6b2a07c4e95d31a8f0b62e7c1d4a59"
)

// Config holds configuration knobs for the HTTP server, the store and the wallet.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	StoreDriver string
	DatabaseURL string
	SeedCatalog bool

	// OwnerWalletAddress receives every checkout payment.
	OwnerWalletAddress string
	// WalletAddress is the account the simulated browser wallet connects as.
	WalletAddress string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load reads an optional .env file from the working directory, then
// collects configuration from the environment with defaults.
func Load() (Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit env files. Missing files are skipped;
// variables already set in the environment win over file values.
func LoadFiles(paths ...string) (Config, error) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", p, err)
		}
	}
	c := fromEnv()
	return c, c.Validate()
}

func fromEnv() Config {
	return Config{
		HTTPAddr:           getenv("HTTP_ADDR", ":8082"),
		ShutdownTimeout:    durenvs("SHUTDOWN_TIMEOUT", 15),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		StoreDriver:        strings.ToLower(getenv("STORE_DRIVER", DriverMemory)),
		DatabaseURL:        getenv("DATABASE_URL", ""),
		SeedCatalog:        boolenv("SEED_CATALOG", true),
		OwnerWalletAddress: getenv("OWNER_WALLET_ADDRESS", DefaultOwnerWalletAddress),
		WalletAddress:      getenv("WALLET_ADDRESS", DefaultWalletAddress),
	}
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.OwnerWalletAddress == "" {
		return errors.New("OWNER_WALLET_ADDRESS must not be empty")
	}
	return nil
}
