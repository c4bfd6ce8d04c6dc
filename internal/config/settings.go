package config

import (
	"jobwatch/internal/delta"
	"jobwatch/internal/notify"
	"time"
)

func (c Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

func (c Config) ErrorBackoff() time.Duration {
	return time.Duration(c.ErrorBackoffMinutes) * time.Minute
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// Mode is the parsed notify_mode, Validate guarantees it is known.
func (c Config) Mode() delta.Mode {
	mode, err := delta.ParseMode(c.NotifyMode)
	if err != nil {
		return delta.ModeAll
	}
	return mode
}

func (c Config) EmailSettings() notify.EmailConfig {
	return notify.EmailConfig{
		Server:    c.Email.SmtpServer,
		Port:      c.Email.SmtpPort,
		Sender:    c.Email.SenderEmail,
		Password:  c.Email.SenderPassword,
		Recipient: c.Email.RecipientEmail,
	}
}

// Channels builds the enabled notification channels in the order they are
// dispatched: email, discord, slack, pushbullet.
func (c Config) Channels(opts notify.HTTPOptions) []notify.Channel {
	channels := []notify.Channel{}
	if email := c.EmailSettings(); email.Enabled() {
		email.Timeout = opts.Timeout
		channels = append(channels, notify.NewEmail(email))
	}
	if c.DiscordWebhook.Enabled {
		channels = append(channels, notify.NewDiscord(c.DiscordWebhook.WebhookUrl, opts))
	}
	if c.SlackWebhook.Enabled {
		channels = append(channels, notify.NewSlack(c.SlackWebhook.WebhookUrl, opts))
	}
	if c.Pushbullet.Enabled {
		channels = append(channels, notify.NewPushbullet(c.Pushbullet.ApiKey, opts))
	}
	return channels
}
