package config

import (
	"jobwatch/internal/delta"
	"jobwatch/internal/fetch"
	"jobwatch/internal/notify"
	"jobwatch/internal/postings"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestLoadMissingWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")

	_, err := Load(path)
	require.ErrorIs(t, err, ErrConfigMissing)
	require.FileExists(t, path)

	config, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "smtp.gmail.com", config.Email.SmtpServer)
	require.Equal(t, 587, config.Email.SmtpPort)
	require.False(t, config.DiscordWebhook.Enabled)
	require.Equal(t, DefaultStateFile, config.StateFile)
	require.Equal(t, time.Hour, config.CheckInterval())

	channels := config.Channels(notify.HTTPOptions{})
	require.Len(t, channels, 1)
	require.Equal(t, "email", channels[0].Name())
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	writeFile(t, path, `{}`)

	config, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultCheckIntervalMinutes, config.CheckIntervalMinutes)
	require.Equal(t, 5*time.Minute, config.ErrorBackoff())
	require.Equal(t, 30*time.Second, config.FetchTimeout())
	require.Equal(t, delta.ModeAll, config.Mode())
	require.Equal(t, fetch.DefaultURL, config.Source.Url)
	require.Equal(t, postings.DefaultHeading, config.Source.SectionHeading)
	require.Empty(t, config.Channels(notify.HTTPOptions{}))
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	writeFile(t, path, `{
		// secrets come from the environment
		email: {smtp_server: "smtp.example.com", smtp_port: 587, sender_email: "bot@example.com", recipient_email: "me@example.com"},
		discord_webhook: {enabled: true, webhook_url: "https://discord.com/api/webhooks/file"},
		slack_webhook: {enabled: true},
		pushbullet: {enabled: true},
		check_interval_minutes: 30,
		notify_mode: "new",
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{check_interval_minutes: 10, schedule: "*/15 * * * *"}`)
	writeFile(t, filepath.Join(dir, ".env"), `
JOBWATCH_SMTP_PASSWORD=from-dotenv
JOBWATCH_SLACK_WEBHOOK_URL=https://hooks.slack.com/services/dotenv
JOBWATCH_PUSHBULLET_API_KEY=dotenv-key
`)
	t.Setenv(EnvPushbulletApiKey, "process-key")

	config, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 10, config.CheckIntervalMinutes)
	require.Equal(t, "*/15 * * * *", config.Schedule)
	require.Equal(t, delta.ModeNew, config.Mode())
	require.Equal(t, "from-dotenv", config.Email.SenderPassword)
	require.Equal(t, "https://discord.com/api/webhooks/file", config.DiscordWebhook.WebhookUrl)
	require.Equal(t, "https://hooks.slack.com/services/dotenv", config.SlackWebhook.WebhookUrl)
	require.Equal(t, "process-key", config.Pushbullet.ApiKey)

	names := []string{}
	for _, c := range config.Channels(notify.HTTPOptions{}) {
		names = append(names, c.Name())
	}
	require.Equal(t, []string{"email", "discord", "slack", "pushbullet"}, names)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name     string
		contents string
		problem  string
	}{
		{name: "syntax", contents: `{check_interval_minutes: }`},
		{name: "notify mode", contents: `{notify_mode: "diff"}`, problem: "notify_mode"},
		{name: "webhook without url", contents: `{discord_webhook: {enabled: true}}`, problem: "discord_webhook.webhook_url"},
		{name: "webhook bad url", contents: `{slack_webhook: {enabled: true, webhook_url: "not a url"}}`, problem: "slack_webhook.webhook_url"},
		{name: "pushbullet without key", contents: `{pushbullet: {enabled: true}}`, problem: "pushbullet.api_key"},
		{name: "cron", contents: `{schedule: "every hour"}`, problem: "not a valid cron expression"},
		{name: "negative interval", contents: `{check_interval_minutes: -1}`, problem: "check_interval_minutes"},
		{name: "bad recipient", contents: `{email: {recipient_email: "nobody"}}`, problem: "email.recipient_email"},
		{name: "otlp endpoint", contents: `{telemetry: {otlp: {traces: {http_endpoint: "::"}}}}`, problem: "telemetry.otlp.traces.http_endpoint"},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json5")
			writeFile(t, path, test.contents)

			_, err := Load(path)
			require.ErrorIs(t, err, ErrConfigInvalid)
			require.Contains(t, err.Error(), test.problem)
		})
	}
}
