// Package email sends notification mail about inquiries and job
// applications through Resend, SMTP, or the log when mail is disabled.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	stdmime "mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/counselcms/server/internal/config"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/metrics"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	transportResend = "resend"
	transportSMTP   = "smtp"
	transportLog    = "log"
)

type Service struct {
	config       config.EmailConfig
	templates    *template.Template
	provider     string
	resendClient *resend.Client
	logger       zerolog.Logger
}

type inquiryData struct {
	SiteName    string
	Inquiry     inquiries.Inquiry
	AdminURL    string
	CurrentYear int
}

type applicationData struct {
	SiteName    string
	Applicant   careers.Applicant
	AdminURL    string
	CurrentYear int
}

// NewService picks the transport: Resend when an API key is configured,
// SMTP when a host is, otherwise log-only.
func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	svc := &Service{
		config:    cfg,
		templates: templates,
		provider:  transportLog,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	switch {
	case !cfg.Enabled:
	case cfg.ResendAPIKey != "":
		svc.provider = transportResend
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	case cfg.SMTPHost != "":
		svc.provider = transportSMTP
	default:
		svc.logger.Warn().Msg("email enabled but neither RESEND_API_KEY nor SMTP_HOST is set; logging only")
	}
	return svc, nil
}

// Provider names the active transport.
func (s *Service) Provider() string {
	return s.provider
}

// SendInquiryNotification tells the firm about a new contact-form inquiry.
func (s *Service) SendInquiryNotification(ctx context.Context, siteName, adminURL string, inquiry inquiries.Inquiry) error {
	if s.config.NotifyTo == "" {
		s.logger.Debug().Str("inquiry_id", inquiry.ID).Msg("no EMAIL_NOTIFY_TO configured, skipping inquiry notification")
		return nil
	}
	body, err := s.renderTemplate("inquiry.html", inquiryData{
		SiteName: siteName, Inquiry: inquiry, AdminURL: adminURL, CurrentYear: time.Now().Year(),
	})
	if err != nil {
		return err
	}
	subject := "New inquiry from " + headerSafe(inquiry.Name)
	if inquiry.Subject != "" {
		subject += ": " + headerSafe(inquiry.Subject)
	}
	return s.send(ctx, message{
		kind:    kindInquiry,
		to:      s.config.NotifyTo,
		replyTo: inquiry.Email,
		subject: subject,
		html:    body,
	})
}

// SendApplicationNotification tells the firm about a new job application.
func (s *Service) SendApplicationNotification(ctx context.Context, siteName, adminURL string, applicant careers.Applicant) error {
	if s.config.NotifyTo == "" {
		s.logger.Debug().Str("applicant_id", applicant.ID).Msg("no EMAIL_NOTIFY_TO configured, skipping application notification")
		return nil
	}
	body, err := s.renderTemplate("application.html", applicationData{
		SiteName: siteName, Applicant: applicant, AdminURL: adminURL, CurrentYear: time.Now().Year(),
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("New application for %s from %s", headerSafe(applicant.JobTitle), headerSafe(applicant.Name))
	return s.send(ctx, message{
		kind:    kindApplication,
		to:      s.config.NotifyTo,
		replyTo: applicant.Email,
		subject: subject,
		html:    body,
	})
}

// SendApplicationConfirmation acknowledges an application to the applicant.
func (s *Service) SendApplicationConfirmation(ctx context.Context, siteName string, applicant careers.Applicant) error {
	body, err := s.renderTemplate("confirmation.html", applicationData{
		SiteName: siteName, Applicant: applicant, CurrentYear: time.Now().Year(),
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("We received your application for %s", headerSafe(applicant.JobTitle))
	return s.send(ctx, message{
		kind:    kindConfirmation,
		to:      applicant.Email,
		subject: subject,
		html:    body,
	})
}

// message is one outgoing mail. replyTo lets staff answer the inquirer or
// applicant straight from the notification.
type message struct {
	kind    string
	to      string
	replyTo string
	subject string
	html    string
}

const (
	kindInquiry      = "inquiry"
	kindApplication  = "application"
	kindConfirmation = "confirmation"
)

func (s *Service) send(ctx context.Context, msg message) error {
	if err := validateEmailAddress(msg.to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}
	// A bad visitor-supplied address only loses the Reply-To header.
	if msg.replyTo != "" && validateEmailAddress(msg.replyTo) != nil {
		msg.replyTo = ""
	}

	var err error
	switch s.provider {
	case transportResend:
		err = s.sendViaResend(ctx, msg)
	case transportSMTP:
		err = s.sendViaSMTP(msg)
	default:
		s.logger.Info().Str("kind", msg.kind).Str("to", msg.to).Str("subject", msg.subject).Msg("email disabled, skipping send")
	}

	result := "sent"
	if err != nil {
		result = "failed"
	}
	metrics.EmailsSent.WithLabelValues(s.provider, result).Inc()
	return err
}

// validateEmailAddress rejects malformed addresses and header injection.
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

// headerSafe strips line breaks from values placed in the Subject header.
func headerSafe(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (s *Service) sendViaSMTP(msg message) error {
	from := s.config.From
	to := msg.to
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	if msg.replyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", msg.replyTo)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime(msg.subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	buf.WriteString(msg.html)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = client.Close() }()

	tlsConfig := &tls.Config{ServerName: s.config.SMTPHost, MinVersion: tls.VersionTLS12}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if s.config.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("failed to quit SMTP connection: %w", err)
	}
	s.logger.Info().Str("kind", msg.kind).Str("to", to).Msg("email sent via SMTP")
	return nil
}

// mime encodes non-ASCII subjects per RFC 2047.
func mime(subject string) string {
	return stdmime.QEncoding.Encode("UTF-8", subject)
}

func (s *Service) renderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
