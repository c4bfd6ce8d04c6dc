package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	PushbulletEndpoint = "https://api.pushbullet.com/v2/pushes"
	pushbulletMaxLines = 5
)

// Pushbullet pushes a note listing the first few postings.
type Pushbullet struct {
	endpoint string
	apiKey   string
	client   *resty.Client
}

func NewPushbullet(apiKey string, opts HTTPOptions) Pushbullet {
	return Pushbullet{
		endpoint: PushbulletEndpoint,
		apiKey:   apiKey,
		client:   newRestyClient(opts),
	}
}

// WithEndpoint points the channel at another API root, for tests.
func (p Pushbullet) WithEndpoint(endpoint string) Pushbullet {
	p.endpoint = endpoint
	return p
}

func (Pushbullet) Name() string {
	return "pushbullet"
}

type pushbulletNote struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

func pushbulletMessage(batch Batch) pushbulletNote {
	shown := batch.Records
	if len(shown) > pushbulletMaxLines {
		shown = shown[:pushbulletMaxLines]
	}
	lines := make([]string, len(shown))
	for i, r := range shown {
		lines[i] = fmt.Sprintf("• %s: %s", r.Company, r.Role)
	}
	return pushbulletNote{
		Type:  "note",
		Title: "🤖 " + batch.title(),
		Body:  strings.Join(lines, "\n"),
	}
}

func (p Pushbullet) Send(ctx context.Context, batch Batch) error {
	res, err := p.client.R().
		SetContext(ctx).
		SetHeader("Access-Token", p.apiKey).
		SetBody(pushbulletMessage(batch)).
		Post(p.endpoint)
	if err != nil {
		return err
	}
	return checkResponse(res)
}
