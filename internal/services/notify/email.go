package notify

import (
	"bytes"
	"fmt"
	"io"
	"net/mail"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
)

// EmailSender delivers buyer-facing mail through the app's configured
// SMTP settings.
type EmailSender struct {
	client mailer.Mailer
	from   mail.Address
}

func NewEmailSender(app core.App, senderName, senderAddress string) *EmailSender {
	return &EmailSender{
		client: app.NewMailClient(),
		from:   mail.Address{Name: senderName, Address: senderAddress},
	}
}

// Send delivers one message. attachment may be nil; filename is ignored
// when it is.
func (s *EmailSender) Send(to, subject, body string, attachment []byte, filename string) error {
	message := &mailer.Message{
		From:    s.from,
		To:      []mail.Address{{Address: to}},
		Subject: subject,
		Text:    body,
	}

	if len(attachment) > 0 {
		message.Attachments = map[string]io.Reader{
			filename: bytes.NewReader(attachment),
		}
	}

	if err := s.client.Send(message); err != nil {
		return fmt.Errorf("email send to %s: %w", to, err)
	}
	return nil
}
