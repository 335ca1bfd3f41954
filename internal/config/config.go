package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"attendance-agent/internal/credentials"
	"attendance-agent/pkg/apperr"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig      *AppConfig
	PortalConfig   *PortalConfig
	BrowserConfig  *BrowserConfig
	WorkflowConfig *WorkflowConfig
	OutputConfig   *OutputConfig
}

type AppConfig struct {
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	Debug              bool          `envconfig:"DEBUG_MODE" default:"false"`
	ManualRun          bool          `envconfig:"MANUAL_RUN" default:"false"`
	RunTimeout         time.Duration `envconfig:"RUN_TIMEOUT" default:"5m"`
	StrictVerification bool          `envconfig:"STRICT_VERIFICATION" default:"false"`
	TraceStdout        bool          `envconfig:"TRACE_STDOUT" default:"false"`
}

type PortalConfig struct {
	LoginURL          string        `envconfig:"LOGIN_URL"`
	LoginID           string        `envconfig:"LOGIN_ID"`
	LoginPassword     string        `envconfig:"LOGIN_PASSWORD"`
	SignInLocation    string        `envconfig:"SIGNIN_LOCATION" default:"Office"`
	LoginFieldTimeout time.Duration `envconfig:"LOGIN_FIELD_TIMEOUT" default:"20s"`
}

type BrowserConfig struct {
	Headless       bool          `envconfig:"BROWSER_HEADLESS" default:"true"`
	SlowMo         int           `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout        time.Duration `envconfig:"BROWSER_TIMEOUT" default:"30s"`
	ViewportWidth  int           `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1920"`
	ViewportHeight int           `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"1080"`
	UserAgent      string        `envconfig:"BROWSER_USER_AGENT" default:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	NoSandbox      bool          `envconfig:"BROWSER_NO_SANDBOX" default:"true"`
	SkipInstall    bool          `envconfig:"BROWSER_SKIP_INSTALL" default:"false"`
}

type WorkflowConfig struct {
	SettleInitial     time.Duration `envconfig:"SETTLE_INITIAL" default:"3s"`
	SettleModal       time.Duration `envconfig:"SETTLE_MODAL" default:"3s"`
	SettleLocation    time.Duration `envconfig:"SETTLE_LOCATION" default:"2s"`
	SettleVerify      time.Duration `envconfig:"SETTLE_VERIFY" default:"5s"`
	ModalProbeTimeout time.Duration `envconfig:"MODAL_PROBE_TIMEOUT" default:"5s"`
	OptionTimeout     time.Duration `envconfig:"OPTION_TIMEOUT" default:"4s"`
	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"250ms"`
	FinalAttempt      bool          `envconfig:"FINAL_ATTEMPT" default:"true"`
}

type OutputConfig struct {
	DiagnosticsDir  string `envconfig:"DIAGNOSTICS_DIR" default:"."`
	HistoryFile     string `envconfig:"HISTORY_FILE" default:"attendance.log"`
	MetricsTextfile string `envconfig:"METRICS_TEXTFILE"`
	CredentialsFile string `envconfig:"CREDENTIALS_FILE" default:".attendance-credentials.yaml"`
}

// GetConfig reads the environment (and .env when present). Empty
// LOGIN_ID/LOGIN_PASSWORD fall back to the local credentials file.
func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if err := conf.fillCredentials(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) fillCredentials() error {
	portal := c.PortalConfig
	if portal.LoginID != "" && portal.LoginPassword != "" {
		return nil
	}

	creds, err := credentials.NewStore(c.OutputConfig.CredentialsFile).Load()
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("read credentials file: %w", err)
	}

	if portal.LoginID == "" {
		portal.LoginID = creds.Username
	}

	if portal.LoginPassword == "" {
		portal.LoginPassword = creds.Password
	}

	return nil
}

// Validate reports the first missing setting the run cannot start without.
// LOGIN_URL has no default: every tenant has its own portal host. An unset
// SIGNIN_LOCATION takes its default from the struct tag, so only an
// explicitly blank value is rejected here.
func (c *Config) Validate() error {
	portal := c.PortalConfig

	if strings.TrimSpace(portal.LoginID) == "" {
		return apperr.ConfigError("LOGIN_ID", errors.New("LOGIN_ID is required"))
	}

	if portal.LoginPassword == "" {
		return apperr.ConfigError("LOGIN_PASSWORD", errors.New("LOGIN_PASSWORD is required"))
	}

	if strings.TrimSpace(portal.LoginURL) == "" {
		return apperr.ConfigError("LOGIN_URL", errors.New("LOGIN_URL is required"))
	}

	if strings.TrimSpace(portal.SignInLocation) == "" {
		return apperr.ConfigError("SIGNIN_LOCATION", errors.New("SIGNIN_LOCATION must not be blank"))
	}

	return nil
}
