package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/sudo-init-do/hushousing/internal/chain"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	Chain   ChainConfig
	Session SessionConfig
	DB      DBConfig
	Log     LogConfig

	// RefreshSchedule is a cron spec for background refreshes; empty disables it.
	RefreshSchedule string `env:"REFRESH_SCHEDULE"`
}

type ChainConfig struct {
	RPCURL             string `env:"RPC_URL"`
	ChainID            int64  `env:"CHAIN_ID" envDefault:"0"`
	KeystoreDir        string `env:"KEYSTORE_DIR"`
	MarketplaceAddress string `env:"MARKETPLACE_ADDRESS" envDefault:"0x6257F57569e1e65A651E89e86ACb9fB4069581Eb"`
	TokenAddress       string `env:"TOKEN_ADDRESS" envDefault:"0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1"`
	TokenSymbol        string `env:"TOKEN_SYMBOL" envDefault:"cUSD"`
	TokenDecimals      int32  `env:"TOKEN_DECIMALS" envDefault:"18"`
	SupportsResale     bool   `env:"SUPPORTS_RESALE" envDefault:"true"`
	CountMethod        string `env:"COUNT_METHOD" envDefault:"viewNumberOfHouseAvailable"`
	ExplorerURL        string `env:"EXPLORER_URL" envDefault:"https://alfajores-blockscout.celo-testnet.org"`
}

type SessionConfig struct {
	Secret string        `env:"JWT_SECRET"`
	TTL    time.Duration `env:"SESSION_TTL" envDefault:"72h"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
}

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Encoding    string `env:"LOG_ENCODING" envDefault:"console"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the current environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env parsing cannot.
func (c Config) Validate() error {
	if !common.IsHexAddress(c.Chain.MarketplaceAddress) {
		return fmt.Errorf("MARKETPLACE_ADDRESS %q is not a hex address", c.Chain.MarketplaceAddress)
	}
	if !common.IsHexAddress(c.Chain.TokenAddress) {
		return fmt.Errorf("TOKEN_ADDRESS %q is not a hex address", c.Chain.TokenAddress)
	}
	switch c.Chain.CountMethod {
	case chain.CountEverListed, chain.CountAvailable:
	default:
		return fmt.Errorf("COUNT_METHOD %q is not a known marketplace method", c.Chain.CountMethod)
	}
	if c.Chain.TokenDecimals < 0 || c.Chain.TokenDecimals > 36 {
		return fmt.Errorf("TOKEN_DECIMALS %d out of range", c.Chain.TokenDecimals)
	}
	return nil
}

// Capabilities describes which marketplace contract version is deployed.
func (c Config) Capabilities() chain.Capabilities {
	return chain.Capabilities{
		SupportsResale: c.Chain.SupportsResale,
		CountMethod:    c.Chain.CountMethod,
	}
}

// DSN builds the Postgres connection string; empty when no database is configured.
func (c Config) DSN() string {
	if c.DB.Host == "" {
		return ""
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
	)
}
