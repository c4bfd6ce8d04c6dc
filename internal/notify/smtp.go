package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	netmail "net/mail"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
)

var errNoAuth = errors.New("smtp: server doesn't support AUTH")

// sendSMTP does what (*email.Email).Send does, except the connection is dialed
// with ctx and every read and write on it stops at ctx's deadline.
func sendSMTP(ctx context.Context, mail *email.Email, addr string, auth smtp.Auth) error {
	err := deliver(ctx, mail, addr, auth)
	if err == nil {
		return nil
	}
	if ctxErr := contextErr(ctx); ctxErr != nil {
		return fmt.Errorf("smtp %s: %w: %w", addr, ctxErr, err)
	}
	return err
}

// contextErr is ctx.Err(), except a passed deadline counts even if the
// context's own timer has not fired yet.
func contextErr(ctx context.Context) error {
	err := ctx.Err()
	if err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return nil
}

func deliver(ctx context.Context, mail *email.Email, addr string, auth smtp.Auth) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	sender, recipients, err := envelope(mail)
	if err != nil {
		return err
	}
	raw, err := mail.Bytes()
	if err != nil {
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		err = client.StartTLS(&tls.Config{ServerName: host})
		if err != nil {
			return err
		}
	}
	if auth != nil {
		if ok, _ := client.Extension("AUTH"); !ok {
			return errNoAuth
		}
		err = client.Auth(auth)
		if err != nil {
			return err
		}
	}

	err = client.Mail(sender)
	if err != nil {
		return err
	}
	for _, rcpt := range recipients {
		err = client.Rcpt(rcpt)
		if err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	if err != nil {
		return err
	}
	err = w.Close()
	if err != nil {
		return err
	}
	return client.Quit()
}

func envelope(mail *email.Email) (string, []string, error) {
	from := mail.From
	if mail.Sender != "" {
		from = mail.Sender
	}
	sender, err := netmail.ParseAddress(from)
	if err != nil {
		return "", nil, fmt.Errorf("parse sender: %w", err)
	}

	var recipients []string
	for _, list := range [][]string{mail.To, mail.Cc, mail.Bcc} {
		for _, raw := range list {
			addr, err := netmail.ParseAddress(raw)
			if err != nil {
				return "", nil, fmt.Errorf("parse recipient: %w", err)
			}
			recipients = append(recipients, addr.Address)
		}
	}
	if len(recipients) == 0 {
		return "", nil, errors.New("no recipients")
	}
	return sender.Address, recipients, nil
}
