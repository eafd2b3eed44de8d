package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	Server        struct {
		Address         string        `mapstructure:"address"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	DB struct {
		Driver         string        `mapstructure:"driver"`
		Host           string        `mapstructure:"host"`
		Port           int           `mapstructure:"port"`
		User           string        `mapstructure:"user"`
		Password       string        `mapstructure:"password"`
		Name           string        `mapstructure:"name"`
		SSLMode        string        `mapstructure:"sslmode"`
		Migrate        bool          `mapstructure:"migrate"`
		ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	} `mapstructure:"db"`
	Auth struct {
		Issuer       string `mapstructure:"issuer"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		RedirectURL  string `mapstructure:"redirect_url"`
	} `mapstructure:"auth"`
	TLS struct {
		Enable   bool   `mapstructure:"enable"`
		CertFile string `mapstructure:"cert_file"`
		KeyFile  string `mapstructure:"key_file"`
	} `mapstructure:"tls"`
	Telemetry struct {
		Enabled     bool   `mapstructure:"enabled"`
		Stdout      bool   `mapstructure:"stdout"`
		ServiceName string `mapstructure:"service_name"`
	} `mapstructure:"telemetry"`
	Timeline struct {
		UpdatableStages []string `mapstructure:"updatable_stages"`
	} `mapstructure:"timeline"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// DefaultUpdatableStages are the stage names whose flows operators may move.
var DefaultUpdatableStages = []string{"Spawn Run", "Case Run", "Venting"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("dev_mode_bypass", false)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "agro")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.migrate", true)
	v.SetDefault("db.connect_timeout", 30*time.Second)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.redirect_url", "")
	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)
	v.SetDefault("telemetry.service_name", "agro-dashboard")
	v.SetDefault("timeline.updatable_stages", DefaultUpdatableStages)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig loads the configuration from a file and the environment.
// An empty path searches for config.yaml in . and ./config; a missing file
// is not an error. Every key can be overridden with an AGRO_ variable,
// e.g. AGRO_DB_HOST.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("AGRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// normalize issuer url (strip trailing slash if any)
	config.Auth.Issuer = normalizeIssuer(config.Auth.Issuer)
	config.Timeline.UpdatableStages = splitList(config.Timeline.UpdatableStages)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("db.driver: unsupported value %q (want postgres or memory)", c.DB.Driver)
	}
	if c.TLS.Enable && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return fmt.Errorf("tls.enable requires tls.cert_file and tls.key_file")
	}
	if len(c.Timeline.UpdatableStages) == 0 {
		return fmt.Errorf("timeline.updatable_stages must not be empty")
	}
	return nil
}

// DatabaseURL builds a postgres connection string from the db section.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name, c.DB.SSLMode)
}

// AuthEnabled reports whether an OIDC issuer is configured.
func (c *Config) AuthEnabled() bool {
	return c.Auth.Issuer != "" && c.Auth.ClientID != ""
}

// splitList accepts both YAML lists and a single comma-separated value, as
// produced by AGRO_TIMELINE_UPDATABLE_STAGES.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// normalizeIssuer removes any trailing slash so the issuer compares equal
// to the one in the discovery document.
func normalizeIssuer(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
