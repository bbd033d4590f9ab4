package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
	"strings"
)

// SMTPOpts holds configuration options for the SMTP mail service.
type SMTPOpts struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPOption defines a configuration option for the SMTP mail service.
type SMTPOption func(*SMTPOpts)

// WithSMTPHost sets the SMTP server host.
func WithSMTPHost(host string) SMTPOption {
	return func(o *SMTPOpts) { o.Host = host }
}

// WithSMTPPort sets the SMTP server port.
func WithSMTPPort(port string) SMTPOption {
	return func(o *SMTPOpts) { o.Port = port }
}

// WithSMTPCredentials sets the SMTP auth credentials.
func WithSMTPCredentials(username, password string) SMTPOption {
	return func(o *SMTPOpts) {
		o.Username = username
		o.Password = password
	}
}

// WithSMTPFrom sets the From address on outgoing mail.
func WithSMTPFrom(from string) SMTPOption {
	return func(o *SMTPOpts) { o.From = from }
}

// SMTPService implements Service over plain SMTP.
type SMTPService struct {
	opts SMTPOpts
	// send is swapped out in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPService creates an SMTP mail service, falling back to SMTP_HOST,
// SMTP_PORT, SMTP_USER, SMTP_PASS, and SMTP_FROM environment variables for
// unset options.
func NewSMTPService(opts ...SMTPOption) (*SMTPService, error) {
	var cfg SMTPOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Host == "" {
		cfg.Host = os.Getenv("SMTP_HOST")
	}
	if cfg.Port == "" {
		cfg.Port = os.Getenv("SMTP_PORT")
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv("SMTP_USER")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("SMTP_PASS")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("SMTP_FROM")
	}
	slog.Debug("SMTP service config loaded",
		"host_set", cfg.Host != "",
		"port_set", cfg.Port != "",
		"auth_set", cfg.Username != "",
		"from_set", cfg.From != "")

	if cfg.Host == "" || cfg.Port == "" {
		return nil, fmt.Errorf("SMTP host and port must be provided")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address must be provided")
	}

	return &SMTPService{opts: cfg, send: smtp.SendMail}, nil
}

// Send delivers one plain-text mail. Context cancellation is checked before
// dialing; the SMTP exchange itself is bounded by the server.
func (s *SMTPService) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.opts.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if s.opts.Username != "" {
		auth = smtp.PlainAuth("", s.opts.Username, s.opts.Password, s.opts.Host)
	}

	addr := s.opts.Host + ":" + s.opts.Port
	if err := s.send(addr, auth, s.opts.From, []string{to}, []byte(msg.String())); err != nil {
		slog.Error("SMTPService Send failed", "error", err, "to", to)
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	slog.Info("SMTPService Send succeeded", "to", to, "subject", subject)
	return nil
}
