package utils

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"path/filepath"
	"strings"

	"echoloom-api/core/config"
)

// EmailMessage is a single outbound email.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

// TemplateData carries the fields email templates can render.
type TemplateData struct {
	RecipientName string
	MeetingTitle  string
	MeetingTime   string
	MeetingURL    string
	HostName      string
	ChangedFields []string
	Reason        string
}

func GetEmailConfig() *config.EmailConfig {
	cfg, ok := config.GetSafe()
	if !ok {
		return &config.EmailConfig{}
	}
	return &cfg.Email
}

// SendEmailTLS delivers a message over implicit-TLS SMTP. The caller owns the
// decision of whether a failure is fatal; this function only reports it.
func SendEmailTLS(cfg config.EmailConfig, msg EmailMessage) error {
	if cfg.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err = client.Mail(cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, to := range msg.To {
		if err = client.Rcpt(to); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	contentType := "text/plain; charset=UTF-8"
	if msg.IsHTML {
		contentType = "text/html; charset=UTF-8"
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s <%s>\r\n", cfg.FromName, cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\nContent-Type: %s\r\n\r\n", contentType)
	b.WriteString(msg.Body)

	if _, err = w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}

// SendTemplateEmailFromTemplatesDir renders templates/<name> and sends the
// result as an HTML email.
func SendTemplateEmailFromTemplatesDir(to []string, subject, templateName string, data TemplateData) error {
	tmpl, err := template.ParseFiles(filepath.Join("templates", templateName))
	if err != nil {
		return fmt.Errorf("parse template %s: %w", templateName, err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("execute template %s: %w", templateName, err)
	}

	return SendEmailTLS(*GetEmailConfig(), EmailMessage{
		To:      to,
		Subject: subject,
		Body:    body.String(),
		IsHTML:  true,
	})
}
