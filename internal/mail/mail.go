package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"stock-insurance-backend/internal/config"
)

var log = logrus.WithField("component", "mail")

// Mailer sends HTML mail over implicit TLS SMTP.
type Mailer struct {
	cfg config.MailConfig
}

func New(cfg config.MailConfig) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	return &Mailer{cfg: cfg}
}

// Enabled reports whether the SMTP account and recipients are configured.
func (m *Mailer) Enabled() bool {
	return m.cfg.Host != "" && m.cfg.User != "" && m.cfg.Pass != "" && len(m.cfg.Recipients) > 0
}

// BuildMessage renders the RFC 822 message sent by SendMail.
func BuildMessage(from, to, subject, body string) string {
	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)
}

// SendMail delivers one message to one recipient.
func (m *Mailer) SendMail(to, subject, body string) error {
	if m.cfg.Host == "" || m.cfg.User == "" || m.cfg.Pass == "" {
		return errors.New("incomplete mail config, check SMTP_HOST, SMTP_USER, SMTP_PASS")
	}

	conn, err := tls.Dial("tcp", fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port), &tls.Config{
		ServerName: m.cfg.Host,
	})
	if err != nil {
		return errors.Wrap(err, "connect smtp server")
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return errors.Wrap(err, "create smtp client")
	}
	defer client.Close()

	if err := client.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)); err != nil {
		return errors.Wrap(err, "smtp auth")
	}
	if err := client.Mail(m.cfg.User); err != nil {
		return errors.Wrap(err, "smtp sender")
	}
	if err := client.Rcpt(to); err != nil {
		return errors.Wrapf(err, "smtp recipient %s", to)
	}

	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "smtp data")
	}
	if _, err := w.Write([]byte(BuildMessage(m.cfg.User, to, subject, body))); err != nil {
		return errors.Wrap(err, "write message")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "close message")
	}
	return client.Quit()
}

// Notify sends the message to every configured recipient and returns the
// last failure.
func (m *Mailer) Notify(subject, body string) error {
	if !m.Enabled() {
		return nil
	}

	var lastErr error
	for _, to := range m.cfg.Recipients {
		if err := m.SendMail(to, subject, body); err != nil {
			lastErr = err
			log.WithError(err).Warnf("unable to mail %s", to)
			continue
		}
		log.Infof("notification sent to %s", to)
	}
	return lastErr
}
