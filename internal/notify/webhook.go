package notify

import (
	"context"
	"fmt"
	"jobwatch/lib/restyutil"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	discordMaxFields = 10
	slackMaxLines    = 20
)

// Discord posts one embed to a Discord webhook.
type Discord struct {
	url    string
	client *resty.Client
}

func NewDiscord(url string, opts HTTPOptions) Discord {
	return Discord{url: url, client: newRestyClient(opts, restyutil.WithRedactedURL())}
}

func (Discord) Name() string {
	return "discord"
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp"`
	Fields      []discordField `json:"fields"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

func discordMessage(batch Batch) discordPayload {
	embed := discordEmbed{
		Title:     "🤖 " + batch.title(),
		Color:     0x00ff00,
		Timestamp: batch.Time.Format(time.RFC3339),
		Fields:    []discordField{},
	}

	shown := batch.Records
	if len(shown) > discordMaxFields {
		shown = shown[:discordMaxFields]
		embed.Description = fmt.Sprintf("showing %d of %d", discordMaxFields, len(batch.Records))
	}
	for _, r := range shown {
		value := fmt.Sprintf("📍 %s\n🕒 %s", r.Location, r.Age)
		if r.Link != "" {
			value += fmt.Sprintf("\n[Apply](%s)", r.Link)
		}
		embed.Fields = append(embed.Fields, discordField{
			Name:   truncate(fmt.Sprintf("%s - %s", r.Company, r.Role), 256),
			Value:  truncate(value, 1024),
			Inline: true,
		})
	}

	return discordPayload{Embeds: []discordEmbed{embed}}
}

func (d Discord) Send(ctx context.Context, batch Batch) error {
	res, err := d.client.R().
		SetContext(ctx).
		SetBody(discordMessage(batch)).
		Post(d.url)
	if err != nil {
		// the webhook url is the credential
		return restyutil.RedactURLError(err)
	}
	return checkResponse(res)
}

// Slack posts a plain text message to a Slack incoming webhook.
type Slack struct {
	url    string
	client *resty.Client
}

func NewSlack(url string, opts HTTPOptions) Slack {
	return Slack{url: url, client: newRestyClient(opts, restyutil.WithRedactedURL())}
}

func (Slack) Name() string {
	return "slack"
}

func slackMessage(batch Batch) map[string]string {
	lines := []string{"*🤖 " + batch.title() + "*"}

	shown := batch.Records
	if len(shown) > slackMaxLines {
		shown = shown[:slackMaxLines]
	}
	for _, r := range shown {
		line := fmt.Sprintf("• *%s*: %s (%s, %s)", r.Company, r.Role, r.Location, r.Age)
		if r.Link != "" {
			line += fmt.Sprintf(" <%s|Apply>", r.Link)
		}
		lines = append(lines, line)
	}
	if rest := len(batch.Records) - len(shown); rest > 0 {
		lines = append(lines, fmt.Sprintf("…and %d more", rest))
	}

	return map[string]string{"text": strings.Join(lines, "\n")}
}

func (s Slack) Send(ctx context.Context, batch Batch) error {
	res, err := s.client.R().
		SetContext(ctx).
		SetBody(slackMessage(batch)).
		Post(s.url)
	if err != nil {
		// the webhook url is the credential
		return restyutil.RedactURLError(err)
	}
	return checkResponse(res)
}
