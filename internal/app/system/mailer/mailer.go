// internal/app/system/mailer/mailer.go
package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned by Send when no SMTP host is set.
var ErrNotConfigured = errors.New("mailer: smtp host not configured")

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// Email is a single outgoing message. HTMLBody is optional.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends email over SMTP.
type Mailer struct {
	cfg  Config
	send sendFunc
}

// New creates a Mailer. A Mailer with an empty host refuses to send.
func New(cfg Config) *Mailer {
	return &Mailer{cfg: cfg, send: smtp.SendMail}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

// Send delivers e.
func (m *Mailer) Send(e Email) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	if e.To == "" {
		return errors.New("mailer: missing recipient")
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, []string{e.To}, m.build(e)); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", e.To, err)
	}
	return nil
}

func (m *Mailer) fromHeader() string {
	if m.cfg.FromName == "" {
		return m.cfg.From
	}
	return mime.QEncoding.Encode("utf-8", m.cfg.FromName) + " <" + m.cfg.From + ">"
}

// build renders e as a MIME message, multipart/alternative when it has an
// HTML body.
func (m *Mailer) build(e Email) []byte {
	var b bytes.Buffer
	b.WriteString("From: " + m.fromHeader() + "\r\n")
	b.WriteString("To: " + e.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", e.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	if e.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(crlf(e.TextBody))
		return b.Bytes()
	}

	boundary := "hl-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	b.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(crlf(e.TextBody) + "\r\n")
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(crlf(e.HTMLBody) + "\r\n")
	b.WriteString("--" + boundary + "--\r\n")
	return b.Bytes()
}

func crlf(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\n", "\r\n")
}
