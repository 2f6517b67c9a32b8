package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("invalid config")

// DefaultApplications are the Spring Boot services covered by the report.
var DefaultApplications = []string{
	"MonitoringCommunicationApplication",
	"MonitoringPersistenceApplication",
	"MonitoringUserConsumerApplication",
}

// DefaultStatuses are the HTTP status classes queried per application.
var DefaultStatuses = []string{"2..", "4..", "5.."}

var statusClass = regexp.MustCompile(`^[1-5]\.\.$`)

// Config holds every configurable value for the report job.
type Config struct {
	LogLevel string `mapstructure:"log_level"` // debug|info|warn|error

	Prometheus  PrometheusConfig  `mapstructure:"prometheus"`
	Report      ReportConfig      `mapstructure:"report"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Slack       SlackConfig       `mapstructure:"slack"`
	Pushgateway PushgatewayConfig `mapstructure:"pushgateway"`
}

type PrometheusConfig struct {
	BaseURL  string        `mapstructure:"base_url"` // e.g. http://prometheus:9090/api/v1/query_range
	Timeout  time.Duration `mapstructure:"timeout"`
	Window   time.Duration `mapstructure:"window"`
	Step     time.Duration `mapstructure:"step"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
}

type ReportConfig struct {
	Applications []string `mapstructure:"applications"`
	Statuses     []string `mapstructure:"statuses"`
	OutputDir    string   `mapstructure:"output_dir"`
	Timezone     string   `mapstructure:"timezone"`
	KeepLocal    bool     `mapstructure:"keep_local"`
}

// Location resolves Timezone. Load has already validated it.
func (r ReportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type StorageConfig struct {
	Backend    string        `mapstructure:"backend"` // s3|minio|sftp
	Bucket     string        `mapstructure:"bucket"`
	Region     string        `mapstructure:"region"`
	Endpoint   string        `mapstructure:"endpoint"`
	UseSSL     bool          `mapstructure:"use_ssl"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	LinkExpiry time.Duration `mapstructure:"link_expiry"`
	SFTP       SFTPConfig    `mapstructure:"sftp"`
}

type SFTPConfig struct {
	Addr            string `mapstructure:"addr"` // host:port
	User            string `mapstructure:"user"`
	KeyPath         string `mapstructure:"key_path"`
	KnownHosts      string `mapstructure:"known_hosts"`
	RemoteDir       string `mapstructure:"remote_dir"`
	DownloadBaseURL string `mapstructure:"download_base_url"`
}

type SlackConfig struct {
	BotToken string `mapstructure:"bot_token"`
	Channel  string `mapstructure:"channel"`
	APIURL   string `mapstructure:"api_url"`
}

type PushgatewayConfig struct {
	URL string `mapstructure:"url"`
	Job string `mapstructure:"job"`
}

// maxPresignExpiry is the SigV4 upper bound for presigned URLs.
const maxPresignExpiry = 7 * 24 * time.Hour

// Load reads configuration from (in decreasing priority):
//  1. environment variables (e.g. PROMETHEUS_BASE_URL, SLACK_BOT_TOKEN)
//  2. the yaml file at path, or ./configs/config.yaml when path is empty
//  3. built-in defaults
//
// It returns a fully populated and validated *Config or an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variables - "prometheus.base_url" maps to PROMETHEUS_BASE_URL
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by the Lambda deployment.
	_ = v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY", "AWS_ACCESS_KEY")
	_ = v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY", "AWS_SECRET_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("prometheus.base_url", "")
	v.SetDefault("prometheus.timeout", 30*time.Second)
	v.SetDefault("prometheus.window", 24*time.Hour)
	v.SetDefault("prometheus.step", time.Minute)
	v.SetDefault("prometheus.username", "")
	v.SetDefault("prometheus.password", "")

	v.SetDefault("report.applications", DefaultApplications)
	v.SetDefault("report.statuses", DefaultStatuses)
	v.SetDefault("report.output_dir", os.TempDir())
	v.SetDefault("report.timezone", "UTC")
	v.SetDefault("report.keep_local", false)

	v.SetDefault("storage.backend", "s3")
	v.SetDefault("storage.bucket", "request-latency-reports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.link_expiry", 48*time.Hour)
	v.SetDefault("storage.sftp.addr", "")
	v.SetDefault("storage.sftp.user", "")
	v.SetDefault("storage.sftp.key_path", "")
	v.SetDefault("storage.sftp.known_hosts", "")
	v.SetDefault("storage.sftp.remote_dir", "")
	v.SetDefault("storage.sftp.download_base_url", "")

	v.SetDefault("slack.bot_token", "")
	v.SetDefault("slack.channel", "requests-latency-report")
	v.SetDefault("slack.api_url", "")

	v.SetDefault("pushgateway.url", "")
	v.SetDefault("pushgateway.job", "latency_report")
}

// Validate checks required values and value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Prometheus.BaseURL) == "" {
		return invalid("prometheus.base_url must not be empty")
	}
	if u, err := url.Parse(c.Prometheus.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("prometheus.base_url %q is not an absolute url", c.Prometheus.BaseURL)
	}
	if c.Prometheus.Window <= 0 || c.Prometheus.Step < time.Second {
		return invalid("prometheus.window must be positive and prometheus.step at least 1s")
	}

	if len(c.Report.Applications) == 0 {
		return invalid("report.applications must not be empty")
	}
	for _, s := range c.Report.Statuses {
		if !statusClass.MatchString(s) {
			return invalid("report.statuses: %q is not a status class like 2..", s)
		}
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return invalid("report.timezone: %v", err)
	}

	switch c.Storage.Backend {
	case "s3", "minio":
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return invalid("storage.access_key and storage.secret_key are required")
		}
		if c.Storage.Bucket == "" {
			return invalid("storage.bucket must not be empty")
		}
		if c.Storage.Backend == "minio" && c.Storage.Endpoint == "" {
			return invalid("storage.endpoint is required for the minio backend")
		}
		if c.Storage.LinkExpiry <= 0 || c.Storage.LinkExpiry > maxPresignExpiry {
			return invalid("storage.link_expiry must be within (0, 7d]")
		}
	case "sftp":
		s := c.Storage.SFTP
		if s.Addr == "" || s.User == "" || s.KeyPath == "" || s.DownloadBaseURL == "" {
			return invalid("storage.sftp addr, user, key_path and download_base_url are required")
		}
	default:
		return invalid("storage.backend %q is not one of s3, minio, sftp", c.Storage.Backend)
	}

	if c.Slack.BotToken == "" {
		return invalid("slack.bot_token must not be empty")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
