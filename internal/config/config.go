package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Overpass  OverpassConfig  `yaml:"overpass" mapstructure:"overpass"`
	Nominatim NominatimConfig `yaml:"nominatim" mapstructure:"nominatim"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Outreach  OutreachConfig  `yaml:"outreach" mapstructure:"outreach"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OverpassConfig configures the map data source.
type OverpassConfig struct {
	Mirrors        []string `yaml:"mirrors" mapstructure:"mirrors"`
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries        int      `yaml:"retries" mapstructure:"retries"`
	RetryDelaySecs int      `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
}

// Timeout returns the per-request HTTP timeout for Overpass mirrors.
func (o OverpassConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSecs) * time.Second
}

// NominatimConfig configures the place-name resolver.
type NominatimConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// PipelineConfig configures the lead pipeline.
type PipelineConfig struct {
	DefaultArea   string `yaml:"default_area" mapstructure:"default_area"`
	EnrichDelayMs int    `yaml:"enrich_delay_ms" mapstructure:"enrich_delay_ms"`
}

// OutreachConfig configures email content and pacing.
type OutreachConfig struct {
	SenderName      string `yaml:"sender_name" mapstructure:"sender_name"`
	SenderEmail     string `yaml:"sender_email" mapstructure:"sender_email"`
	TrackingBaseURL string `yaml:"tracking_base_url" mapstructure:"tracking_base_url"`
	ScheduleURL     string `yaml:"schedule_url" mapstructure:"schedule_url"`
	SendDelaySecs   int    `yaml:"send_delay_secs" mapstructure:"send_delay_secs"`
}

// SMTPConfig holds mail transport credentials.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// ExportConfig configures the tabular output sinks.
type ExportConfig struct {
	CSVPath  string `yaml:"csv_path" mapstructure:"csv_path"`
	XLSXPath string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// ServerConfig configures the HTTP invocation surface.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// EnrichDelay returns the pause between per-lead enrichment fetches.
func (p PipelineConfig) EnrichDelay() time.Duration {
	return time.Duration(p.EnrichDelayMs) * time.Millisecond
}

// SendDelay returns the pause between outbound sends.
func (o OutreachConfig) SendDelay() time.Duration {
	return time.Duration(o.SendDelaySecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadgen.db")
	v.SetDefault("overpass.mirrors", []string{
		"https://overpass.kumi.systems/api/interpreter",
		"https://z.overpass-api.de/api/interpreter",
		"https://api.openstreetmap.fr/oapi/interpreter",
		"https://overpass.openstreetmap.ie/api/interpreter",
		"https://overpass-api.de/api/interpreter",
	})
	v.SetDefault("overpass.timeout_secs", 180)
	v.SetDefault("overpass.retries", 6)
	v.SetDefault("overpass.retry_delay_secs", 15)
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "leadgen-cli/1.0 (contact@gconnectt.com)")
	v.SetDefault("pipeline.default_area", "Bengaluru")
	v.SetDefault("pipeline.enrich_delay_ms", 1000)
	v.SetDefault("outreach.tracking_base_url", "http://localhost:3001")
	v.SetDefault("outreach.send_delay_secs", 5)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("export.csv_path", "leads_scored.csv")
	v.SetDefault("export.xlsx_path", "leads_scored.xlsx")
	v.SetDefault("server.port", 3001)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ValidateSend checks the settings required before any mail goes out.
func (c *Config) ValidateSend() error {
	if c.SMTP.Host == "" {
		return eris.New("config: smtp.host is required to send outreach")
	}
	if c.Outreach.SenderEmail == "" {
		return eris.New("config: outreach.sender_email is required to send outreach")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
