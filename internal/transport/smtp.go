package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/nhle/mailterm/internal/model"
)

const dialTimeout = 30 * time.Second

// SMTPConfig holds the SMTP server settings for sending messages.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
}

// SMTP delivers messages through an authenticated SMTP server, using
// implicit TLS when configured and STARTTLS otherwise.
type SMTP struct {
	cfg    SMTPConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSMTP creates an SMTP transport.
func NewSMTP(cfg SMTPConfig, logger *slog.Logger) *SMTP {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTP{cfg: cfg, logger: logger, now: time.Now}
}

// Deliver composes msg and hands it to the server. Address errors are
// reported before any connection is made.
func (s *SMTP) Deliver(ctx context.Context, msg model.Message) error {
	from, to, err := parseEnvelope(msg)
	if err != nil {
		return err
	}
	body, err := composeParsed(msg, from, to, s.now())
	if err != nil {
		return err
	}

	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := sendMailViaSMTPClient(client, from.Address, to.Address, body); err != nil {
		return err
	}

	s.logger.Info("message sent", "id", msg.ID, "to", to.Address, "host", s.cfg.Host)
	return nil
}

// dial connects and, for plain connections, upgrades with STARTTLS.
func (s *SMTP) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}

	var (
		conn net.Conn
		err  error
	)
	if s.cfg.TLS {
		d := &tls.Dialer{NetDialer: &net.Dialer{Timeout: dialTimeout}, Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("TLS dial to %s: %w", addr, err)
		}
	} else {
		d := &net.Dialer{Timeout: dialTimeout}
		conn, err = d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial to %s: %w", addr, err)
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating SMTP client: %w", err)
	}

	if !s.cfg.TLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				return nil, fmt.Errorf("SMTP STARTTLS: %w", err)
			}
		}
	}

	return client, nil
}

// sendMailViaSMTPClient sends a message using an already-authenticated
// SMTP client.
func sendMailViaSMTPClient(
	client *smtp.Client, from, to string, body []byte,
) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}

	if _, err := writer.Write(body); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}
