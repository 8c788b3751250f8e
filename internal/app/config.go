package app

import (
	"net/url"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/grocery-console/internal/session"
)

// Config holds the console configuration, loadable from environment
// variables (GROCER_ prefix) or YAML config files. Flags are owned by the
// command line and applied on top.
type Config struct {
	BackendURL  string        `default:"http://localhost:9000/api" usage:"Base URL of the grocery REST API" yaml:"backend_url"`
	SessionFile string        `default:"~/.config/grocer/session.toml" usage:"Where the bearer token is stored" yaml:"session_file"`
	Timeout     time.Duration `default:"15s" usage:"Timeout of a single backend request" yaml:"timeout"`
	StaleGuard  bool          `default:"false" usage:"Drop listings that settle after a newer one" yaml:"stale_guard"`
	Serve       ServeConfig   `yaml:"serve"`
}

// ServeConfig controls the JSON server of `grocer serve`.
type ServeConfig struct {
	Addr           string         `default:"127.0.0.1:8080" usage:"Listen address" yaml:"addr"`
	HealthInterval time.Duration  `default:"10s" usage:"Interval of health checks" yaml:"health_interval"`
	LoginThrottle  ThrottleConfig `yaml:"login_throttle"`
	CORS           CORSConfig     `yaml:"cors"`
	Graceful       GracefulConfig `yaml:"graceful"`
}

// ThrottleConfig limits failed logins per client.
type ThrottleConfig struct {
	MaxFailures int           `default:"5" usage:"Failed logins allowed per window" yaml:"max_failures"`
	Window      time.Duration `default:"5m" usage:"Failed login counting window" yaml:"window"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins     []string `default:"http://localhost:3000" usage:"Allowed CORS origins" yaml:"origins"`
	Credentials bool     `default:"true" usage:"Allow credentials" yaml:"credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"1s" usage:"Delay after readiness=false before shutdown" yaml:"readiness_delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" yaml:"shutdown_timeout"`
}

// LoadConfig loads configuration from the environment and YAML files.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "GROCER",
		Files:     []string{"grocer.yaml", "/etc/grocer/config.yaml"},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	ac.SkipFlags = true
	ac.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the plain API_URL and PORT variables when
// the prefixed ones are not set.
func (c *Config) applyPlatformDefaults() {
	if v := os.Getenv("API_URL"); v != "" && os.Getenv("GROCER_BACKEND_URL") == "" {
		c.BackendURL = v
	}
	if port := os.Getenv("PORT"); port != "" && os.Getenv("GROCER_SERVE_ADDR") == "" {
		c.Serve.Addr = "127.0.0.1:" + port
	}
	if c.SessionFile == "" {
		c.SessionFile = session.DefaultPath
	}
}

// Validate checks values the loader cannot.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("backend URL %q must be an absolute http(s) URL", c.BackendURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Serve.LoginThrottle.MaxFailures < 1 || c.Serve.LoginThrottle.Window <= 0 {
		return errors.New("login throttle needs a positive max_failures and window")
	}
	return nil
}
