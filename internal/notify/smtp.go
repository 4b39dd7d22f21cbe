package notify

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers emails over authenticated SMTP (Gmail app-password
// style). It implements common.EmailSender.
type SMTPSender struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Send delivers a single HTML email.
func (s SMTPSender) Send(to, subject, html string) error {
	if s.Host == "" || s.Username == "" || s.Password == "" {
		return fmt.Errorf("smtp: credentials not configured")
	}
	from := s.From
	if from == "" {
		from = s.Username
	}
	port := s.Port
	if port == "" {
		port = "587"
	}
	headers := []string{
		fmt.Sprintf("From: %s <%s>", s.fromName(), from),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + html
	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	return smtp.SendMail(s.Host+":"+port, auth, from, []string{to}, []byte(msg))
}

func (s SMTPSender) fromName() string {
	if s.FromName == "" {
		return "Makeup Courses"
	}
	return s.FromName
}
