// Package mail delivers report emails over SMTP.
package mail

import (
	"context"
	"regexp"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/gbp-optimizer/leadgen-api/internal/domain"
)

// SMTPSender sends mail through an SMTP relay. Implements port.MailSender.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewSMTPSender configures a sender for the given relay.
func NewSMTPSender(host string, port int, user, password, from string, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
		logger: logger,
	}
}

// Send delivers one HTML email. The context deadline is not propagated
// into the SMTP dial; gomail manages its own connection lifecycle.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return &domain.ErrExternalService{Service: "smtp", Err: err}
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

var placeholderRe = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Render substitutes {{key}} placeholders in tpl with values from vars.
// Unknown placeholders are left as-is so a typo is visible in the output
// instead of silently vanishing.
func Render(tpl string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tpl, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return match
	})
}
