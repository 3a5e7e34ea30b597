package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "VAULTGATE_"

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Vault         VaultConfig          `koanf:"vault" validate:"required"`
	Adapters      AdaptersConfig       `koanf:"adapters"`
	PSPTimeout    int                  `koanf:"psp_timeout" validate:"gte=0"`
	Database      *DatabaseConfig      `koanf:"database"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string `koanf:"port" validate:"required"`
	ReadTimeout  int    `koanf:"read_timeout" validate:"required"`
	WriteTimeout int    `koanf:"write_timeout" validate:"required"`
	IdleTimeout  int    `koanf:"idle_timeout" validate:"required"`
	// CORSAllowedOrigins enables CORS on the management API when set.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// VaultConfig locates the vault and the service account used to call it.
// Credentials holds the content of the service account credentials file;
// BearerToken is a fixed token alternative for local development.
type VaultConfig struct {
	URL         string `koanf:"url" validate:"required,url"`
	ID          string `koanf:"id" validate:"required"`
	Credentials string `koanf:"credentials" validate:"required_without=BearerToken"`
	BearerToken string `koanf:"bearer_token"`
	Timeout     int    `koanf:"timeout" validate:"gte=0"`
}

type AdaptersConfig struct {
	Azul        *AzulConfig        `koanf:"azul"`
	Cybersource *CybersourceConfig `koanf:"cybersource"`
	Segpay      *SegpayConfig      `koanf:"segpay"`
}

type AzulConfig struct {
	URL string `koanf:"url" validate:"required,url"`
}

type CybersourceConfig struct {
	RequestHost       string `koanf:"request_host" validate:"required,hostname_port|hostname"`
	ResourcePath      string `koanf:"resource_path" validate:"required,startswith=/"`
	MerchantID        string `koanf:"merchant_id" validate:"required"`
	MerchantKeyID     string `koanf:"merchant_key_id" validate:"required"`
	MerchantSecretKey string `koanf:"merchant_secret_key" validate:"required,base64"`
	// BaseURL overrides https://{request_host} as the target origin; the
	// signed host stays RequestHost.
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
}

type SegpayConfig struct {
	AuthURL string `koanf:"auth_url" validate:"required,url"`
}

type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// DSN returns the postgres connection URL for the database config.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// VaultTimeout is the vault HTTP client timeout; zero means no client timeout.
func (c *Config) VaultTimeout() time.Duration {
	return time.Duration(c.Vault.Timeout) * time.Second
}

// PSPCallTimeout is the PSP HTTP client timeout; zero means no client timeout.
func (c *Config) PSPCallTimeout() time.Duration {
	return time.Duration(c.PSPTimeout) * time.Second
}

// envKey maps VAULTGATE_VAULT__URL (or VAULTGATE_VAULT.URL) to vault.url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// LoadConfig loads the configuration from environment variables using koanf.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Observability is a pointer so an unset section can be told apart from a zero one.
	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}
	mainConfig.Observability.ServiceName = "vaultgate"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}
	return mainConfig, nil
}
