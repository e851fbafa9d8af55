package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var contextRootPattern = regexp.MustCompile(`^/?[A-Za-z0-9._-]+(/[A-Za-z0-9._-]+)*/?$`)

type ServerConfig struct {
	Address           string `mapstructure:"address"`
	Environment       string `mapstructure:"environment"`
	TLSCert           string `mapstructure:"tls_cert"`
	TLSKey            string `mapstructure:"tls_key"`
	TrustProxyHeaders bool   `mapstructure:"trust_proxy_headers"`
}

type XMPPConfig struct {
	Domain             string `mapstructure:"domain"`
	InbandRegistration bool   `mapstructure:"inband_registration"`
}

type WebConfig struct {
	ContextRoot string `mapstructure:"context_root"`
	RootDir     string `mapstructure:"root_dir"`
	Language    string `mapstructure:"language"`
}

type PropertiesConfig struct {
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	XMPP       XMPPConfig       `mapstructure:"xmpp"`
	Web        WebConfig        `mapstructure:"web"`
	Properties PropertiesConfig `mapstructure:"properties"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// Load reads the configuration. With an empty path, config.yaml is looked up
// in ./config and the working directory; a missing file is not an error.
// Environment variables override file values, e.g. SERVER_ADDRESS.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":7070")
	v.SetDefault("server.tls_cert", "")
	v.SetDefault("server.tls_key", "")
	v.SetDefault("server.trust_proxy_headers", false)
	v.SetDefault("xmpp.domain", "localhost")
	v.SetDefault("xmpp.inband_registration", true)
	v.SetDefault("web.context_root", "inverse")
	v.SetDefault("web.root_dir", "")
	v.SetDefault("web.language", "en")
	v.SetDefault("properties.file", "./config/properties.yaml")
	v.SetDefault("properties.watch", true)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("metrics.buffer_size", 1000)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.TLSCert,
						validation.When(sc.TLSKey != "", validation.Required.Error("required when tls_key is set")),
					),
					validation.Field(&sc.TLSKey,
						validation.When(sc.TLSCert != "", validation.Required.Error("required when tls_cert is set")),
					),
				)
			}),
		),
		validation.Field(&c.XMPP,
			validation.By(func(value interface{}) error {
				xc, ok := value.(XMPPConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an XMPPConfig")
				}
				return validation.ValidateStruct(&xc,
					validation.Field(&xc.Domain,
						validation.Required,
						is.Host,
					),
				)
			}),
		),
		validation.Field(&c.Web,
			validation.Required,
			validation.By(func(value interface{}) error {
				wc, ok := value.(WebConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a WebConfig")
				}
				return validation.ValidateStruct(&wc,
					validation.Field(&wc.ContextRoot,
						validation.Required,
						validation.Match(contextRootPattern),
						validation.By(validateContextRoot),
					),
					validation.Field(&wc.RootDir,
						validation.By(validateDir),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateContextRoot(value interface{}) error {
	root, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	for _, segment := range strings.Split(strings.Trim(root, "/"), "/") {
		if segment == "." || segment == ".." {
			return validation.NewError("validation_invalid_context_root", "must not contain dot segments")
		}
	}

	return nil
}

func validateDir(value interface{}) error {
	dir, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return validation.NewError("validation_missing_dir", "directory does not exist")
	}
	if !info.IsDir() {
		return validation.NewError("validation_not_dir", "must be a directory")
	}

	return nil
}
