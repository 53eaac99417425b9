package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
	"github.com/feral-file/ff-yield-ledger/internal/ledger"
	"github.com/feral-file/ff-yield-ledger/internal/payment"
)

// Payment providers
const (
	PaymentProviderMemory   = "memory"
	PaymentProviderEthereum = "ethereum"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL             string        `mapstructure:"url"`
	StreamName      string        `mapstructure:"stream_name"`
	MaxReconnects   int           `mapstructure:"max_reconnects"`
	ReconnectWait   time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName  string        `mapstructure:"connection_name"`
	DuplicateWindow time.Duration `mapstructure:"duplicate_window"`
}

// DispatcherConfig holds the event publishing queue configuration
type DispatcherConfig struct {
	QueueSize       int           `mapstructure:"queue_size"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // in seconds
	IdleTimeout    int      `mapstructure:"idle_timeout"`  // in seconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// PaymentConfig selects where the stablecoin lives
type PaymentConfig struct {
	// Provider is "memory" for a process-local token or "ethereum" for an
	// ERC-20 contract reached over RPC
	Provider string              `mapstructure:"provider"`
	Memory   MemoryPaymentConfig `mapstructure:"memory"`
}

// MemoryPaymentConfig seeds the in-memory stablecoin at startup. Lists come
// from the config file only.
type MemoryPaymentConfig struct {
	Accounts []MemoryAccountConfig `mapstructure:"accounts"`
}

// MemoryAccountConfig is the starting balance of one holder and the
// allowance it grants the ledger, in the token's smallest unit
type MemoryAccountConfig struct {
	Address   string `mapstructure:"address"`
	Balance   string `mapstructure:"balance"`
	Allowance string `mapstructure:"allowance"`
}

// EthereumConfig holds the RPC endpoint and the key the ledger spends with
type EthereumConfig struct {
	RPCURL string `mapstructure:"rpc_url"`
	// SignerKey is the hex encoded private key of the spender account
	SignerKey string `mapstructure:"signer_key"`
	// ConfirmTimeout bounds how long a broadcast transfer is awaited
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
}

// RateLimitConfig throttles authenticated writes per caller. A zero
// RequestsPerMinute disables the limiter.
type RateLimitConfig struct {
	RedisAddr           string        `mapstructure:"redis_addr"`
	RedisPassword       string        `mapstructure:"redis_password"`
	RedisDB             int           `mapstructure:"redis_db"`
	KeyPrefix           string        `mapstructure:"key_prefix"`
	RequestsPerMinute   int           `mapstructure:"requests_per_minute"`
	Burst               int           `mapstructure:"burst"`
	EnableLocalFallback bool          `mapstructure:"enable_local_fallback"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
}

// WebhookEndpointConfig is one receiver of ledger events
type WebhookEndpointConfig struct {
	URL        string   `mapstructure:"url"`
	Secret     string   `mapstructure:"secret"`
	EventTypes []string `mapstructure:"event_types"`
}

// WebhookConfig lists the endpoints committed events are posted to
type WebhookConfig struct {
	Timeout   time.Duration           `mapstructure:"timeout"`
	Endpoints []WebhookEndpointConfig `mapstructure:"endpoints"`
}

// LedgerConfig holds the construction parameters of the ledger. Addresses
// and amounts are kept as strings and parsed by Params.
type LedgerConfig struct {
	Name                   string `mapstructure:"name"`
	Symbol                 string `mapstructure:"symbol"`
	BaseURI                string `mapstructure:"base_uri"`
	Owner                  string `mapstructure:"owner"`
	OwnerFundReceiptWallet string `mapstructure:"owner_fund_receipt_wallet"`
	PaymentToken           string `mapstructure:"payment_token"`
	Spender                string `mapstructure:"spender"`
	Price                  string `mapstructure:"price"`
	TransferFees           string `mapstructure:"transfer_fees"`
	MintFees               string `mapstructure:"mint_fees"`
	MaxSupply              uint64 `mapstructure:"max_supply"`
	YieldBasis             string `mapstructure:"yield_basis"`
}

// LedgerAPIConfig holds configuration for ledger-api
type LedgerAPIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Ethereum   EthereumConfig   `mapstructure:"ethereum"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Webhooks   WebhookConfig    `mapstructure:"webhooks"`
}

// LoadLedgerAPIConfig loads configuration for ledger-api
func LoadLedgerAPIConfig(configFile string, envPath string) (*LedgerAPIConfig, error) {
	v := configureViper("ledger-api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "LEDGER_EVENTS")
	v.SetDefault("nats.connection_name", "ledger-api")
	v.SetDefault("nats.duplicate_window", "2m")
	v.SetDefault("dispatcher.queue_size", 1024)
	v.SetDefault("dispatcher.initial_interval", "500ms")
	v.SetDefault("dispatcher.max_interval", "30s")
	v.SetDefault("dispatcher.max_elapsed_time", "5m")
	v.SetDefault("payment.provider", PaymentProviderMemory)
	v.SetDefault("ethereum.confirm_timeout", "2m")
	v.SetDefault("ledger.yield_basis", string(ledger.YieldBasisTotalSupply))
	v.SetDefault("rate_limit.key_prefix", "ff:ledger:limiter:")
	v.SetDefault("rate_limit.requests_per_minute", 0)
	v.SetDefault("rate_limit.enable_local_fallback", true)
	v.SetDefault("rate_limit.health_check_interval", "10s")
	v.SetDefault("webhooks.timeout", "10s")

	if err := v.ReadInConfig(); err != nil {
		var error viper.ConfigFileNotFoundError
		if errors.As(err, &error) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg LedgerAPIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the fields the service cannot start without
func (c *LedgerAPIConfig) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}

	switch c.Payment.Provider {
	case PaymentProviderMemory:
		if c.Ledger.Spender == "" {
			return errors.New("ledger.spender is required with the memory payment provider")
		}
		if _, err := c.Payment.MemoryAccounts(); err != nil {
			return err
		}
	case PaymentProviderEthereum:
		if c.Ethereum.RPCURL == "" {
			return errors.New("ethereum.rpc_url is required with the ethereum payment provider")
		}
		if c.Ethereum.SignerKey == "" {
			return errors.New("ethereum.signer_key is required with the ethereum payment provider")
		}
	default:
		return fmt.Errorf("unknown payment provider %q", c.Payment.Provider)
	}

	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit.requests_per_minute and rate_limit.burst must not be negative")
	}

	for i, ep := range c.Webhooks.Endpoints {
		if ep.URL == "" || ep.Secret == "" {
			return fmt.Errorf("webhooks.endpoints[%d] needs both url and secret", i)
		}
	}

	return nil
}

// Params converts the ledger section into construction parameters. A
// non-zero spender overrides ledger.spender, so the ethereum provider can
// supply the address of its signer.
func (c *LedgerConfig) Params(spender common.Address) (ledger.Params, error) {
	p := ledger.Params{
		Name:       c.Name,
		Symbol:     c.Symbol,
		BaseURI:    c.BaseURI,
		MaxSupply:  c.MaxSupply,
		YieldBasis: ledger.YieldBasis(c.YieldBasis),
		Spender:    spender,
	}

	var err error
	if p.Owner, err = parseAddress("ledger.owner", c.Owner); err != nil {
		return ledger.Params{}, err
	}
	if p.PaymentToken, err = parseAddress("ledger.payment_token", c.PaymentToken); err != nil {
		return ledger.Params{}, err
	}
	if c.OwnerFundReceiptWallet != "" {
		if p.OwnerFundReceiptWallet, err = parseAddress("ledger.owner_fund_receipt_wallet", c.OwnerFundReceiptWallet); err != nil {
			return ledger.Params{}, err
		}
	}
	if spender == domain.ZeroAddress {
		if p.Spender, err = parseAddress("ledger.spender", c.Spender); err != nil {
			return ledger.Params{}, err
		}
	}

	if p.Price, err = parseAmount("ledger.price", c.Price); err != nil {
		return ledger.Params{}, err
	}
	if p.TransferFees, err = parseAmount("ledger.transfer_fees", c.TransferFees); err != nil {
		return ledger.Params{}, err
	}
	if p.MintFees, err = parseAmount("ledger.mint_fees", c.MintFees); err != nil {
		return ledger.Params{}, err
	}

	if err := p.Validate(); err != nil {
		return ledger.Params{}, fmt.Errorf("invalid ledger parameters: %w", err)
	}
	return p, nil
}

// MemoryAccounts parses the seed accounts of the in-memory stablecoin. An
// empty amount leaves that side untouched.
func (c *PaymentConfig) MemoryAccounts() ([]payment.Account, error) {
	accounts := make([]payment.Account, 0, len(c.Memory.Accounts))
	for i, a := range c.Memory.Accounts {
		prefix := fmt.Sprintf("payment.memory.accounts[%d]", i)

		addr, err := parseAddress(prefix+".address", a.Address)
		if err != nil {
			return nil, err
		}
		account := payment.Account{Address: addr}
		if a.Balance != "" {
			if account.Balance, err = parseAmount(prefix+".balance", a.Balance); err != nil {
				return nil, err
			}
		}
		if a.Allowance != "" {
			if account.Allowance, err = parseAmount(prefix+".allowance", a.Allowance); err != nil {
				return nil, err
			}
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func parseAddress(key, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("%s is required", key)
	}
	addr, err := domain.ParseAddress(value)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", key, err)
	}
	return addr, nil
}

func parseAmount(key, value string) (*uint256.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("%s is required", key)
	}
	amount, err := domain.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return amount, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("LEDGER_API")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables.
// Viper only maps env vars onto keys it already knows about, which without a
// config file are just the defaults.
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.duplicate_window",
		// Dispatcher
		"dispatcher.queue_size",
		"dispatcher.initial_interval",
		"dispatcher.max_interval",
		"dispatcher.max_elapsed_time",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.allowed_origins",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Ledger
		"ledger.name",
		"ledger.symbol",
		"ledger.base_uri",
		"ledger.owner",
		"ledger.owner_fund_receipt_wallet",
		"ledger.payment_token",
		"ledger.spender",
		"ledger.price",
		"ledger.transfer_fees",
		"ledger.mint_fees",
		"ledger.max_supply",
		"ledger.yield_basis",
		// Payment
		"payment.provider",
		"ethereum.rpc_url",
		"ethereum.signer_key",
		"ethereum.confirm_timeout",
		// Rate limit
		"rate_limit.redis_addr",
		"rate_limit.redis_password",
		"rate_limit.redis_db",
		"rate_limit.key_prefix",
		"rate_limit.requests_per_minute",
		"rate_limit.burst",
		"rate_limit.enable_local_fallback",
		"rate_limit.health_check_interval",
		// Webhooks; endpoints are a list and come from the config file only
		"webhooks.timeout",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Shared base first, then local, then the per-service local file
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
