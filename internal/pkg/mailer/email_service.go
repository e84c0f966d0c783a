package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendOperatorAlert(toEmail, subject, detail string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

// SendOperatorAlert mails escalations that automatic handling gave up on:
// webhook rows past the retry threshold, signature-failure floods,
// anomalous subscription transitions.
func (s *emailService) SendOperatorAlert(toEmail, subject, detail string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[ScanGuard Billing] "+subject)

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Billing engine alert</h2>
			<p><strong>%s</strong></p>
			<pre style="background: #f4f4f4; padding: 12px; border-radius: 4px;">%s</pre>
			<p>This alert was escalated by the entitlement engine. Manual action may be required.</p>
		</div>
	`, subject, detail)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send alert to %s: %v\n", toEmail, err)
		return err
	}

	return nil
}
