package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/Nomadcxx/jellyhook/internal/config"
	"github.com/Nomadcxx/jellyhook/internal/event"
)

const subjectPrefix = "Jellyhook: "

// EmailNotifier submits plain-text mail over SMTP, upgrading with
// STARTTLS when the server offers it.
type EmailNotifier struct {
	cfg     config.EmailConfig
	timeout time.Duration
}

func NewEmailNotifier(cfg config.EmailConfig, timeout time.Duration) *EmailNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EmailNotifier{cfg: cfg, timeout: timeout}
}

func (n *EmailNotifier) Name() string {
	return "email"
}

func (n *EmailNotifier) Enabled() bool {
	return n.cfg.Configured()
}

func (n *EmailNotifier) addr() string {
	return net.JoinHostPort(n.cfg.Server, strconv.Itoa(n.cfg.Port))
}

func (n *EmailNotifier) from() string {
	if n.cfg.From != "" {
		return n.cfg.From
	}
	return n.cfg.User
}

// Ping opens a session and authenticates without sending anything.
func (n *EmailNotifier) Ping(ctx context.Context) error {
	c, err := n.dial(ctx, "email ping")
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Quit()
}

func (n *EmailNotifier) Notify(ctx context.Context, msg Message, _ event.Event) error {
	const op = "email notify"

	c, err := n.dial(ctx, op)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Mail(n.from()); err != nil {
		return apperr.New(apperr.Malformed, op, err)
	}
	for _, rcpt := range splitRecipients(n.cfg.To) {
		if err := c.Rcpt(rcpt); err != nil {
			return apperr.New(apperr.Malformed, op, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return apperr.New(apperr.ServiceUnavailable, op, err)
	}
	if _, err := w.Write(buildEmail(n.from(), n.cfg.To, msg)); err != nil {
		return apperr.New(apperr.ServiceUnavailable, op, err)
	}
	if err := w.Close(); err != nil {
		return apperr.New(apperr.ServiceUnavailable, op, err)
	}
	return c.Quit()
}

// dial connects, negotiates STARTTLS and authenticates.
func (n *EmailNotifier) dial(ctx context.Context, op string) (*smtp.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", n.addr())
	if err != nil {
		return nil, apperr.New(apperr.ServiceUnavailable, op, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.Server)
	if err != nil {
		conn.Close()
		return nil, apperr.New(apperr.ServiceUnavailable, op, err)
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(startTLSConfig(n.cfg.Server)); err != nil {
			c.Close()
			return nil, apperr.New(apperr.ServiceUnavailable, op, err)
		}
	}

	if ok, _ := c.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Server)
		if err := c.Auth(auth); err != nil {
			c.Close()
			return nil, apperr.New(apperr.Unauthorized, op, err)
		}
	}
	return c, nil
}

func splitRecipients(to string) []string {
	var out []string
	for _, r := range strings.Split(to, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// buildEmail renders an RFC 5322 message with a plain-text body.
func buildEmail(from, to string, msg Message) []byte {
	date := msg.Timestamp
	if date.IsZero() {
		date = time.Now()
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subjectPrefix+msg.Title))
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.PlainText(), "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

var _ Notifier = (*EmailNotifier)(nil)

func startTLSConfig(server string) *tls.Config {
	return &tls.Config{
		ServerName: server,
		MinVersion: tls.VersionTLS12,
	}
}
