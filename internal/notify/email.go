package notify

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jordan-wright/email"
)

// DefaultEmailTimeout bounds one delivery attempt when EmailConfig.Timeout is zero.
const DefaultEmailTimeout = 30 * time.Second

type EmailConfig struct {
	Server    string
	Port      int
	Sender    string
	Password  string
	Recipient string
	// Timeout bounds dialing plus the whole SMTP conversation of one attempt.
	Timeout time.Duration
}

// Enabled reports whether there is enough configuration to attempt delivery.
func (c EmailConfig) Enabled() bool {
	return c.Server != "" && c.Recipient != ""
}

func (c EmailConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

// SendFunc delivers a message and must give up once ctx is done.
type SendFunc func(ctx context.Context, mail *email.Email, addr string, auth smtp.Auth) error

// Email sends an HTML table of the postings (with a plain text alternative) over
// SMTP. The connection is upgraded with STARTTLS when the server offers it.
type Email struct {
	config EmailConfig
	send   SendFunc
}

func NewEmail(config EmailConfig) Email {
	if config.Timeout <= 0 {
		config.Timeout = DefaultEmailTimeout
	}
	return Email{config: config, send: sendSMTP}
}

// WithSendFunc replaces the SMTP transport, for tests.
func (e Email) WithSendFunc(send SendFunc) Email {
	e.send = send
	return e
}

func (Email) Name() string {
	return "email"
}

func (e Email) Send(ctx context.Context, batch Batch) error {
	ctx, span := tracer.Start(ctx, "Email.Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("jobwatch <%s>", e.config.Sender)
	mail.To = []string{e.config.Recipient}
	mail.Subject = "🚨 " + batch.title()
	mail.HTML = []byte(renderEmailHTML(batch))
	mail.Text = []byte(renderEmailText(batch))

	var auth smtp.Auth
	if e.config.Password != "" {
		auth = smtp.PlainAuth("", e.config.Sender, e.config.Password, e.config.Server)
	}

	err := e.attempt(ctx, mail, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), errNoAuth.Error()) {
		err = e.attempt(ctx, mail, nil)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (e Email) attempt(ctx context.Context, mail *email.Email, auth smtp.Auth) error {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()
	return e.send(ctx, mail, e.config.addr(), auth)
}

func renderEmailHTML(batch Batch) string {
	t := table.NewWriter()
	t.Style().Format.Header = text.FormatDefault
	// cells are escaped below so the apply link can stay markup
	t.Style().HTML = table.HTMLOptions{
		CSSClass:    "postings",
		EmptyColumn: "&nbsp;",
		EscapeText:  false,
		Newline:     "<br/>",
	}
	t.AppendHeader(table.Row{"Company", "Role", "Location", "Age", "Apply"})
	for _, r := range batch.Records {
		apply := ""
		if r.Link != "" {
			apply = fmt.Sprintf(`<a href="%s">Apply</a>`, html.EscapeString(r.Link))
		}
		t.AppendRow(table.Row{
			"<strong>" + html.EscapeString(r.Company) + "</strong>",
			html.EscapeString(r.Role),
			html.EscapeString(r.Location),
			html.EscapeString(r.Age),
			apply,
		})
	}

	var out strings.Builder
	out.WriteString("<html><body>\n")
	fmt.Fprintf(&out, "<h2>%s</h2>\n", html.EscapeString(batch.title()))
	fmt.Fprintf(
		&out, "<p>Found %d job listing(s) at %s</p>\n",
		batch.Count, batch.Time.Format("2006-01-02 15:04:05"),
	)
	out.WriteString(t.RenderHTML())
	out.WriteString("\n<p><em>This is an automated notification from jobwatch.</em></p>\n")
	out.WriteString("</body></html>\n")
	return out.String()
}

func renderEmailText(batch Batch) string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s\n", batch.title())
	fmt.Fprintf(&out, "Found %d job listing(s) at %s\n\n", batch.Count, batch.Time.Format("2006-01-02 15:04:05"))
	for _, r := range batch.Records {
		fmt.Fprintf(&out, "- %s: %s (%s, %s)\n", r.Company, r.Role, r.Location, r.Age)
		if r.Link != "" {
			fmt.Fprintf(&out, "  %s\n", r.Link)
		}
	}
	return out.String()
}
