package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

type Sender struct {
	client *mail.Client
	config *SMTPConfig
}

func NewSender(config *SMTPConfig) (*Sender, error) {
	client, err := mail.NewClient(config.Host,
		mail.WithPort(config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(config.Username),
		mail.WithPassword(config.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &Sender{
		client: client,
		config: config,
	}, nil
}

// Send delivers one plain-text message. The sender display name can be
// overridden per message so notifications can carry the counterparty's
// name.
func (s *Sender) Send(ctx context.Context, to, subject, body, senderName string) error {
	msg := mail.NewMsg()

	name := senderName
	if name == "" {
		name = s.config.FromName
	}
	if err := msg.FromFormat(name, s.config.FromAddress); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
