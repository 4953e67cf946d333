// Package config loads the harbor-dex-proxy configuration file.
//
// Values are read from YAML, missing credentials fall back to environment
// variables (optionally populated from .env files), defaults are applied and the
// result is validated before any component is constructed.
package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/harbor-dex-proxy/internal/version"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIKeyEnv      = "HARBOR_API_KEY"
	DefaultETHFromAddrEnv = "ETH_FROM_ADDR"
	DefaultBTCFromAddrEnv = "BTC_FROM_ADDR"
)

// RESTConfig describes the authenticated Harbor REST endpoint.
type RESTConfig struct {
	BaseURI string `yaml:"base_uri" json:"base_uri" jsonschema:"title=Base URI,description=Harbor REST base URI" validate:"required,url"`
	APIPath string `yaml:"api_path" json:"api_path" jsonschema:"title=API Path,description=Path prefix appended to the base URI"`
	// RequestTimeout bounds every single outbound call.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" jsonschema:"description=Per request timeout,default=10s" validate:"gt=0"`
	// SessionTimeout is the total timeout of the shared HTTP client.
	SessionTimeout time.Duration `yaml:"session_timeout" json:"session_timeout" jsonschema:"description=HTTP client timeout,default=30s" validate:"gt=0"`
	// RequestsPerSecond limits outbound calls. Zero disables the limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" jsonschema:"description=Outbound rate limit,default=10" validate:"gte=0"`
	Burst             int     `yaml:"burst" json:"burst" jsonschema:"description=Outbound rate limit burst,default=5" validate:"gte=0"`
}

// XNodeConfig describes the unauthenticated xnode endpoint.
type XNodeConfig struct {
	BaseURI string `yaml:"base_uri" json:"base_uri" jsonschema:"title=Base URI,description=xnode base URI" validate:"omitempty,url"`
	APIPath string `yaml:"api_path" json:"api_path" jsonschema:"title=API Path"`
}

type WebsocketConfig struct {
	URL string `yaml:"url" json:"url" jsonschema:"description=Harbor websocket URL advertised in deposit instructions" validate:"omitempty,url"`
}

// FromAddresses are the whitelisted deposit source addresses per chain.
type FromAddresses struct {
	ETH string `yaml:"ETH" json:"ETH" jsonschema:"description=Ethereum from address"`
	BTC string `yaml:"BTC" json:"BTC" jsonschema:"description=Bitcoin from address"`
}

// PollingConfig holds the background loop intervals.
type PollingConfig struct {
	Markets  time.Duration `yaml:"markets" json:"markets" jsonschema:"description=Market refresh interval,default=60s" validate:"gt=0"`
	Balances time.Duration `yaml:"balances" json:"balances" jsonschema:"description=Balance refresh interval,default=15s" validate:"gt=0"`
	Fills    time.Duration `yaml:"fills" json:"fills" jsonschema:"description=Fill polling interval,default=2s" validate:"gt=0"`
	// AckTimeout is how long an unacknowledged submission may stay unknown before it fails.
	AckTimeout    time.Duration `yaml:"ack_timeout" json:"ack_timeout" jsonschema:"default=30s" validate:"gt=0"`
	SubmitTimeout time.Duration `yaml:"submit_timeout" json:"submit_timeout" jsonschema:"default=15s" validate:"gt=0"`
}

// HarborConfig configures the connector.
type HarborConfig struct {
	REST      RESTConfig      `yaml:"rest" json:"rest"`
	XNode     XNodeConfig     `yaml:"xnode" json:"xnode"`
	Websocket WebsocketConfig `yaml:"websocket" json:"websocket"`

	APIKey         string        `yaml:"api_key" json:"api_key" jsonschema:"title=API Key,description=Harbor API key. Falls back to api_key_env"`
	APIKeyEnv      string        `yaml:"api_key_env" json:"api_key_env" jsonschema:"default=HARBOR_API_KEY"`
	FromAddresses  FromAddresses `yaml:"from_addresses" json:"from_addresses"`
	ETHFromAddrEnv string        `yaml:"eth_from_addr_env" json:"eth_from_addr_env" jsonschema:"default=ETH_FROM_ADDR"`
	BTCFromAddrEnv string        `yaml:"btc_from_addr_env" json:"btc_from_addr_env" jsonschema:"default=BTC_FROM_ADDR"`

	Polling PollingConfig `yaml:"polling" json:"polling"`
	// Symbols is the allowlist. Empty allows every market.
	Symbols []string `yaml:"symbols" json:"symbols" jsonschema:"description=Symbol allowlist"`
	// TerminalOrderRetention evicts terminal orders nobody observed. Zero keeps them until observed.
	TerminalOrderRetention time.Duration `yaml:"terminal_order_retention" json:"terminal_order_retention" validate:"gte=0"`
}

type ServerConfig struct {
	Listen      string   `yaml:"listen" json:"listen" jsonschema:"default=:1958" validate:"required"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
	MetricsPath string   `yaml:"metrics_path" json:"metrics_path" jsonschema:"default=/metrics" validate:"required,startswith=/"`
}

// RedisConfig enables publishing order events to a Redis channel when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db" validate:"gte=0"`
	Channel  string `yaml:"channel" json:"channel" jsonschema:"default=harbor.orders" validate:"required_with=Addr"`
}

type EventsConfig struct {
	Redis RedisConfig `yaml:"redis" json:"redis"`
}

// Config is the root configuration document.
type Config struct {
	Version  string       `yaml:"version" json:"version" jsonschema:"description=Config format version (semver)"`
	LogLevel string       `yaml:"log_level" json:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error" validate:"omitempty,oneof=debug info warn error"`
	Server   ServerConfig `yaml:"server" json:"server"`
	Harbor   HarborConfig `yaml:"harbor" json:"harbor"`
	Events   EventsConfig `yaml:"events" json:"events"`
}

// Default returns a config with every optional field populated.
func Default() Config {
	return Config{
		Version:  "",
		LogLevel: "info",
		Server: ServerConfig{
			Listen:      ":1958",
			CORSOrigins: []string{"*"},
			MetricsPath: "/metrics",
		},
		Harbor: HarborConfig{
			REST: RESTConfig{
				BaseURI:           "",
				APIPath:           "",
				RequestTimeout:    10 * time.Second,
				SessionTimeout:    30 * time.Second,
				RequestsPerSecond: 10,
				Burst:             5,
			},
			XNode:          XNodeConfig{BaseURI: "", APIPath: ""},
			Websocket:      WebsocketConfig{URL: ""},
			APIKey:         "",
			APIKeyEnv:      DefaultAPIKeyEnv,
			FromAddresses:  FromAddresses{ETH: "", BTC: ""},
			ETHFromAddrEnv: DefaultETHFromAddrEnv,
			BTCFromAddrEnv: DefaultBTCFromAddrEnv,
			Polling: PollingConfig{
				Markets:       60 * time.Second,
				Balances:      15 * time.Second,
				Fills:         2 * time.Second,
				AckTimeout:    30 * time.Second,
				SubmitTimeout: 15 * time.Second,
			},
			Symbols:                nil,
			TerminalOrderRetention: 0,
		},
		Events: EventsConfig{
			Redis: RedisConfig{Addr: "", Password: "", DB: 0, Channel: "harbor.orders"},
		},
	}
}

// Load reads the YAML file at path. envFiles are loaded into the process
// environment first; files that do not exist are skipped.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return Parse(data)
}

// Parse decodes YAML on top of Default, resolves environment fallbacks and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	cfg.ResolveEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ResolveEnv fills the API key and from addresses from the environment when the
// file leaves them empty. Explicit values always win.
func (c *Config) ResolveEnv() {
	h := &c.Harbor
	if h.APIKeyEnv == "" {
		h.APIKeyEnv = DefaultAPIKeyEnv
	}

	if h.ETHFromAddrEnv == "" {
		h.ETHFromAddrEnv = DefaultETHFromAddrEnv
	}

	if h.BTCFromAddrEnv == "" {
		h.BTCFromAddrEnv = DefaultBTCFromAddrEnv
	}

	if h.APIKey == "" {
		h.APIKey = os.Getenv(h.APIKeyEnv)
	}

	if h.FromAddresses.ETH == "" {
		h.FromAddresses.ETH = os.Getenv(h.ETHFromAddrEnv)
	}

	if h.FromAddresses.BTC == "" {
		h.FromAddresses.BTC = os.Getenv(h.BTCFromAddrEnv)
	}

	for i, symbol := range h.Symbols {
		h.Symbols[i] = strings.TrimSpace(symbol)
	}
}

// Validate validates the Config struct and the config format version.
// Credentials are not required here; the connector checks them at start.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid harbor config", err)
	}

	if err := version.CheckConfigCompatibility(version.GetVersion(), c.Version); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidVersion, "incompatible config version", err)
	}

	return nil
}

// Schema returns the JSON schema of the config document.
func Schema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&Config{}) //nolint:exhaustruct // empty config for schema generation

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func loadEnvFiles(files []string) error {
	for _, file := range files {
		if file == "" {
			continue
		}

		if _, err := os.Stat(file); os.IsNotExist(err) {
			continue
		}

		if err := godotenv.Load(file); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to load env file %s", file)
		}
	}

	return nil
}
