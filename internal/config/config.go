// Package config loads the jobwatch configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"jobwatch/internal/delta"
	"jobwatch/internal/fetch"
	"jobwatch/internal/postings"
	"jobwatch/lib/configutil"
	"jobwatch/lib/telemetry"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

var (
	// ErrConfigMissing is returned by Load after it wrote a template in place of the
	// missing file.
	ErrConfigMissing = errors.New("config file missing")
	ErrConfigInvalid = errors.New("config invalid")
)

// environment variables that override secrets from the file
const (
	EnvSmtpPassword      = "JOBWATCH_SMTP_PASSWORD"
	EnvDiscordWebhookUrl = "JOBWATCH_DISCORD_WEBHOOK_URL"
	EnvSlackWebhookUrl   = "JOBWATCH_SLACK_WEBHOOK_URL"
	EnvPushbulletApiKey  = "JOBWATCH_PUSHBULLET_API_KEY"
)

const (
	DefaultCheckIntervalMinutes = 60
	DefaultErrorBackoffMinutes  = 5
	DefaultStateFile            = "last_state.json"
)

type EmailConfig struct {
	SmtpServer     string `json:"smtp_server"`
	SmtpPort       int    `json:"smtp_port" validate:"omitempty,min=1,max=65535"`
	SenderEmail    string `json:"sender_email" validate:"omitempty,email"`
	SenderPassword string `json:"sender_password"`
	RecipientEmail string `json:"recipient_email" validate:"omitempty,email"`
}

type WebhookConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookUrl string `json:"webhook_url" validate:"required_if=Enabled true,omitempty,url"`
}

type PushbulletConfig struct {
	Enabled bool   `json:"enabled"`
	ApiKey  string `json:"api_key" validate:"required_if=Enabled true"`
}

type SourceConfig struct {
	Url            string `json:"url" validate:"omitempty,url"`
	SectionHeading string `json:"section_heading"`
	TimeoutSeconds int    `json:"timeout_seconds" validate:"min=0"`
	UserAgent      string `json:"user_agent"`
}

type Config struct {
	Email                EmailConfig      `json:"email"`
	DiscordWebhook       WebhookConfig    `json:"discord_webhook"`
	SlackWebhook         WebhookConfig    `json:"slack_webhook"`
	Pushbullet           PushbulletConfig `json:"pushbullet"`
	CheckIntervalMinutes int              `json:"check_interval_minutes" validate:"min=0"`
	StateFile            string           `json:"state_file"`
	// Schedule is a standard 5 field cron expression, it takes precedence over
	// CheckIntervalMinutes when set.
	Schedule            string           `json:"schedule" validate:"omitempty,cron"`
	ErrorBackoffMinutes int              `json:"error_backoff_minutes" validate:"min=0"`
	NotifyMode          string           `json:"notify_mode" validate:"omitempty,oneof=all new"`
	Source              SourceConfig     `json:"source"`
	Telemetry           telemetry.Config `json:"telemetry"`
}

// Template is what Load writes when the config file does not exist.
func Template() Config {
	return Config{
		Email: EmailConfig{
			SmtpServer:     "smtp.gmail.com",
			SmtpPort:       587,
			SenderEmail:    "your_email@gmail.com",
			SenderPassword: "your_app_password",
			RecipientEmail: "recipient@gmail.com",
		},
		DiscordWebhook: WebhookConfig{
			WebhookUrl: "https://discord.com/api/webhooks/YOUR_WEBHOOK_URL",
		},
		SlackWebhook: WebhookConfig{
			WebhookUrl: "https://hooks.slack.com/services/YOUR_WEBHOOK_URL",
		},
		Pushbullet: PushbulletConfig{
			ApiKey: "your_pushbullet_api_key",
		},
		CheckIntervalMinutes: DefaultCheckIntervalMinutes,
		StateFile:            DefaultStateFile,
		ErrorBackoffMinutes:  DefaultErrorBackoffMinutes,
		NotifyMode:           string(delta.ModeAll),
		Source: SourceConfig{
			Url:            fetch.DefaultURL,
			SectionHeading: postings.DefaultHeading,
			TimeoutSeconds: int(fetch.DefaultTimeout / time.Second),
		},
	}
}

// Load reads the config file at path (merged with its ".local" sibling), applies
// secrets from the environment and a ".env" file next to it, fills in defaults and
// validates the result.
//
// If neither file exists a template is written at path and the error wraps ErrConfigMissing.
func Load(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, fs.ErrNotExist) {
		templateErr := configutil.WriteTemplate(path, Template())
		if templateErr != nil {
			return Config{}, fmt.Errorf("%w: %s (writing a template failed: %s)", ErrConfigMissing, path, templateErr.Error())
		}
		return Config{}, fmt.Errorf("%w: a template was written to %s", ErrConfigMissing, path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigInvalid, err.Error())
	}

	env, err := readEnv(filepath.Join(filepath.Dir(path), ".env"))
	if err != nil {
		return Config{}, err
	}
	config.applyEnv(env)
	config.applyDefaults()

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

// readEnv returns the variables of the dotenv file (if it exists) overlaid with
// the process environment.
func readEnv(dotenv string) (func(string) (string, bool), error) {
	fileEnv, err := godotenv.Read(dotenv)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", dotenv, err)
	}
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := fileEnv[key]
		return value, ok
	}, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key    string
		target *string
	}{
		{key: EnvSmtpPassword, target: &c.Email.SenderPassword},
		{key: EnvDiscordWebhookUrl, target: &c.DiscordWebhook.WebhookUrl},
		{key: EnvSlackWebhookUrl, target: &c.SlackWebhook.WebhookUrl},
		{key: EnvPushbulletApiKey, target: &c.Pushbullet.ApiKey},
	}
	for _, o := range overrides {
		value, ok := lookup(o.key)
		if ok && value != "" {
			*o.target = value
		}
	}
}

func (c *Config) applyDefaults() {
	if c.CheckIntervalMinutes == 0 {
		c.CheckIntervalMinutes = DefaultCheckIntervalMinutes
	}
	if c.ErrorBackoffMinutes == 0 {
		c.ErrorBackoffMinutes = DefaultErrorBackoffMinutes
	}
	if c.StateFile == "" {
		c.StateFile = DefaultStateFile
	}
	if c.NotifyMode == "" {
		c.NotifyMode = string(delta.ModeAll)
	}
	if c.Source.Url == "" {
		c.Source.Url = fetch.DefaultURL
	}
	if c.Source.SectionHeading == "" {
		c.Source.SectionHeading = postings.DefaultHeading
	}
	if c.Source.TimeoutSeconds == 0 {
		c.Source.TimeoutSeconds = int(fetch.DefaultTimeout / time.Second)
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = fetch.DefaultUserAgent
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// registration only fails for an empty tag or a nil function
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate returns an error wrapping ErrConfigInvalid that lists every invalid field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %s", ErrConfigInvalid, err.Error())
	}
	problems := make([]string, len(validationErrors))
	for i, ve := range validationErrors {
		problems[i] = fmt.Sprintf("%s (%s)", strings.TrimPrefix(ve.Namespace(), "Config."), describeTag(ve))
	}
	return fmt.Errorf("%w: %s", ErrConfigInvalid, strings.Join(problems, ", "))
}

func describeTag(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required_if":
		return "required when enabled"
	case "oneof":
		return "must be one of: " + ve.Param()
	case "cron":
		return "not a valid cron expression"
	}
	if ve.Param() != "" {
		return fmt.Sprintf("%s=%s", ve.Tag(), ve.Param())
	}
	return ve.Tag()
}
