// Package notifier delivers the gateway's transactional email over SMTP:
// account-activation links and password-reset links.
package notifier

import (
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/AuthGate/internal/obs"
	"github.com/NordCoder/AuthGate/internal/obs/retry"
)

type SMTPConfig struct {
	Addr       string        `mapstructure:"addr"`
	From       string        `mapstructure:"from"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subj_prefix"`
	// BaseURL is the public prefix for verification and reset links,
	// e.g. https://auth.example.com/api/auth.
	BaseURL string `mapstructure:"base_url"`
}

type Mailer struct {
	addr       string
	auth       smtp.Auth
	useTLS     bool
	timeout    time.Duration
	from       string
	subjPrefix string
	baseURL    string

	log *zap.Logger
}

func New(cfg SMTPConfig) *Mailer {
	var auth smtp.Auth
	if cfg.User != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, host(cfg.Addr))
	}
	return &Mailer{
		addr:       cfg.Addr,
		auth:       auth,
		useTLS:     cfg.UseTLS,
		timeout:    cfg.Timeout,
		from:       cfg.From,
		subjPrefix: cfg.SubjPrefix,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		log:        zap.L().With(zap.String("component", "notifier.mailer")),
	}
}

func (m *Mailer) WithLogger(l *zap.Logger) *Mailer {
	if l == nil {
		return m
	}
	cp := *m
	cp.log = l.With(zap.String("component", "notifier.mailer"))
	return &cp
}

// SendActivation mails the activation link. The caller has already created
// the account; a failure here is reported, never rolled back into the store.
func (m *Mailer) SendActivation(ctx context.Context, to string, userID int64, token string) error {
	subject, body := activationMessage(m.baseURL, userID, token)
	err := m.send(ctx, to, subject, body)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	obs.MailSent.WithLabelValues("activation", outcome).Inc()
	return err
}

// SendPasswordReset mails the reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to string, userID int64, token string) error {
	subject, body := resetMessage(m.baseURL, userID, token)
	err := m.send(ctx, to, subject, body)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	obs.MailSent.WithLabelValues("reset", outcome).Inc()
	return err
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	subj := strings.TrimSpace(m.subjPrefix + " " + subject)
	msg := []byte(
		"From: " + m.from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subj + "\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" + body + "\r\n")

	start := time.Now()
	log := m.log.With(
		zap.String("smtp_addr", m.addr),
		zap.Bool("tls", m.useTLS),
		zap.String("to", to),
		zap.String("subject", subj),
	)

	err := retry.Do(ctx, func() error { return m.deliver(msg, to) }, retry.MailPolicy(log))
	if err != nil {
		return err
	}
	log.Info("email sent", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (m *Mailer) deliver(msg []byte, to string) error {
	dialer := net.Dialer{Timeout: m.timeout}

	if !m.useTLS {
		return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg)
	}

	conn, err := tls.DialWithDialer(&dialer, "tcp", m.addr, &tls.Config{ServerName: host(m.addr)})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, host(m.addr))
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	if m.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(m.auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}
	return w.Close()
}

func host(addr string) string {
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	return addr
}
