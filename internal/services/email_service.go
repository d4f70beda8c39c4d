package services

import (
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// EmailService delivers a generated report as a PDF attachment.
type EmailService interface {
	Send(to, subject, body, filename string, attachment []byte) error
}

type smtpEmailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPEmailService(host string, port int, username, password, from string) EmailService {
	return &smtpEmailService{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *smtpEmailService) Send(to, subject, body, filename string, attachment []byte) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	m.Attach(filename,
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(attachment)
			return err
		}),
		gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
	)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
