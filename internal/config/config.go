// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Storage backend names accepted by STORAGE_PROVIDER.
const (
	BackendWalrus = "walrus"
	BackendIPFS   = "ipfs"
)

// Config holds all runtime configuration for the relay, the facade and the CLI.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	Storage Storage
	Relay   Relay
	Archive Archive

	// NFTPackageID is the published package holding the terra_proof_nft module.
	NFTPackageID string
}

// Storage selects and configures the upload backend.
type Storage struct {
	Backend string // "walrus" or "ipfs"

	PinataAPIKey     string
	PinataSecretKey  string
	PinataAPIURL     string
	PinataGatewayURL string

	WalrusPublisherURL  string
	WalrusAggregatorURL string

	// UseRelay routes ipfs uploads through the same-origin relay instead of
	// calling Pinata directly. Only trusted processes should turn it off.
	UseRelay   bool
	RelayURL   string
	RelayToken string
}

// Relay configures the server-side upload relay.
type Relay struct {
	JWTSecret string // empty disables bearer auth
	RateLimit float64
	RateBurst int
}

// Archive configures the optional S3-compatible mirror of relayed payloads.
type Archive struct {
	Endpoint   string // empty disables archiving
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PublicBase string // browser-accessible base URL, e.g. "http://localhost:9000/terra-proof"
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, reading from environment")
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Storage: Storage{
			Backend:             strings.ToLower(getEnv("STORAGE_PROVIDER", BackendIPFS)),
			PinataAPIKey:        getEnv("PINATA_API_KEY", ""),
			PinataSecretKey:     getEnv("PINATA_SECRET_KEY", ""),
			PinataAPIURL:        getEnv("PINATA_API_URL", "https://api.pinata.cloud"),
			PinataGatewayURL:    getEnv("PINATA_GATEWAY_URL", "https://gateway.pinata.cloud/ipfs"),
			WalrusPublisherURL:  getEnv("WALRUS_PUBLISHER_URL", "https://publisher.walrus-testnet.walrus.space"),
			WalrusAggregatorURL: getEnv("WALRUS_AGGREGATOR_URL", "https://aggregator.walrus-testnet.walrus.space"),
			UseRelay:            getBool("STORAGE_USE_RELAY", true),
			RelayURL:            getEnv("RELAY_URL", "http://localhost:8080/api/upload"),
			RelayToken:          getEnv("RELAY_TOKEN", ""),
		},

		Relay: Relay{
			JWTSecret: getEnv("RELAY_JWT_SECRET", ""),
			RateLimit: getFloat("RELAY_RATE_LIMIT", 2),
			RateBurst: getInt("RELAY_RATE_BURST", 5),
		},

		Archive: Archive{
			Endpoint:   getEnv("ARCHIVE_ENDPOINT", ""),
			AccessKey:  getEnv("ARCHIVE_ACCESS_KEY", ""),
			SecretKey:  getEnv("ARCHIVE_SECRET_KEY", ""),
			Bucket:     getEnv("ARCHIVE_BUCKET", "terra-proof"),
			UseSSL:     getBool("ARCHIVE_USE_SSL", false),
			PublicBase: getEnv("ARCHIVE_PUBLIC_BASE", "http://localhost:9000/terra-proof"),
		},

		NFTPackageID: getEnv("NFT_PACKAGE_ID",
			"0x0000000000000000000000000000000000000000000000000000000000000000"),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate reports settings that make the configuration unusable.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendWalrus, BackendIPFS:
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be %q or %q, got %q", BackendWalrus, BackendIPFS, c.Storage.Backend)
	}
	if c.Relay.RateLimit < 0 || c.Relay.RateBurst < 0 {
		return fmt.Errorf("relay rate limit and burst must not be negative")
	}
	return nil
}

// HasPinataCredentials reports whether both halves of the Pinata key pair are set.
func (s Storage) HasPinataCredentials() bool {
	return s.PinataAPIKey != "" && s.PinataSecretKey != ""
}

// Enabled reports whether archiving is configured.
func (a Archive) Enabled() bool {
	return a.Endpoint != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		log.Warn("config: invalid boolean, using default", "key", key, "default", fallback)
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		log.Warn("config: invalid integer, using default", "key", key, "default", fallback)
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, strconv.FormatFloat(fallback, 'f', -1, 64)), 64)
	if err != nil {
		log.Warn("config: invalid number, using default", "key", key, "default", fallback)
		return fallback
	}
	return v
}
