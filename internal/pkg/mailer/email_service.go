package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendPaymentReceipt(toEmail, serviceName string, amount float64, currency string) error
	SendPaymentFailed(toEmail, serviceName, reason string) error
	SendRefundOutcome(toEmail, serviceName string, amount float64, currency string, succeeded bool) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (s *emailService) SendPaymentReceipt(toEmail, serviceName string, amount float64, currency string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.senderEmail, s.senderName))
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Payment Received")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Thank you for your payment</h2>
			<p>We have received your payment of <strong>%s %.2f</strong> for <strong>%s</strong>.</p>
			<p>Your booking is confirmed. We are honored to care for your companion.</p>
		</div>
	`, currency, amount, serviceName)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send receipt to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Receipt sent to %s\n", toEmail)
	return nil
}

func (s *emailService) SendPaymentFailed(toEmail, serviceName, reason string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.senderEmail, s.senderName))
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Payment Unsuccessful")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your payment did not go through</h2>
			<p>The payment for <strong>%s</strong> was not completed (%s).</p>
			<p>No money was taken. You can retry the payment from your booking page at any time.</p>
		</div>
	`, serviceName, reason)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send payment failure notice to %s: %v\n", toEmail, err)
		return err
	}
	return nil
}

func (s *emailService) SendRefundOutcome(toEmail, serviceName string, amount float64, currency string, succeeded bool) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.senderEmail, s.senderName))
	m.SetHeader("To", toEmail)

	var body string
	if succeeded {
		m.SetHeader("Subject", "Your Refund Has Been Processed")
		body = fmt.Sprintf(`
			<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
				<h2>Refund processed</h2>
				<p>We have refunded <strong>%s %.2f</strong> for <strong>%s</strong>.</p>
				<p>Depending on your bank, the funds may take a few business days to appear.</p>
			</div>
		`, currency, amount, serviceName)
	} else {
		m.SetHeader("Subject", "About Your Refund Request")
		body = fmt.Sprintf(`
			<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
				<h2>Your refund needs a little more time</h2>
				<p>The automatic refund of <strong>%s %.2f</strong> for <strong>%s</strong> could not be completed.</p>
				<p>Our staff has been notified and will process it manually. No action is needed from you.</p>
			</div>
		`, currency, amount, serviceName)
	}

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send refund outcome to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Refund outcome sent to %s\n", toEmail)
	return nil
}
