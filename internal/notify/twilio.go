package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// phoneNumberRegex strips everything but digits and a leading plus sign.
var phoneNumberRegex = regexp.MustCompile(`[^\d+]`)

// TwilioOpts holds configuration options for the Twilio SMS service.
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	From       string
}

// TwilioOption defines a configuration option for the Twilio SMS service.
type TwilioOption func(*TwilioOpts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) TwilioOption {
	return func(o *TwilioOpts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) TwilioOption {
	return func(o *TwilioOpts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number.
func WithFromNumber(from string) TwilioOption {
	return func(o *TwilioOpts) { o.From = from }
}

// smsSender is the slice of the Twilio REST API the service uses; tests
// substitute a mock.
type smsSender interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioService implements Service by sending SMS invitations through the
// Twilio REST API.
type TwilioService struct {
	api  smsSender
	from string
}

// NewTwilioService creates a Twilio SMS service, falling back to
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_FROM_NUMBER environment
// variables for unset options.
func NewTwilioService(opts ...TwilioOption) (*TwilioService, error) {
	var cfg TwilioOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("Twilio service config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"From_set", cfg.From != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioService{api: client.Api, from: cfg.From}, nil
}

// Send delivers one SMS. Subject and body are joined since SMS has no subject
// line. The recipient must canonicalize to at least six digits.
func (s *TwilioService) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	canonical := phoneNumberRegex.ReplaceAllString(to, "")
	if len(canonical) < 6 {
		return fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}

	text := body
	if subject != "" {
		text = subject + "\n\n" + body
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(canonical)
	params.SetFrom(s.from)
	params.SetBody(text)

	if _, err := s.api.CreateMessage(params); err != nil {
		slog.Error("TwilioService Send failed", "error", err, "to", canonical)
		return fmt.Errorf("failed to send SMS to %s: %w", canonical, err)
	}
	slog.Info("TwilioService Send succeeded", "to", canonical)
	return nil
}
