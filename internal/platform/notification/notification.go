// Package notification renders the onboarding email templates and delivers
// them through a pluggable EmailSender.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

const (
	TemplateApproved          = "registration-approved"
	TemplateRejected          = "registration-rejected"
	TemplatePasswordReset     = "password-reset"
	TemplatePasswordResetDone = "password-reset-confirmation"
)

// Template defines a reusable message with {{key}} placeholders.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	for _, t := range []Template{
		{
			ID:      TemplateApproved,
			Subject: "Your MedVault Account Approved",
			Body: "Hello {{first_name}},\n\nYour account has been approved.\n\n" +
				"Username: {{username}}\nTemporary Password: {{password}}\n\n" +
				"For your security, you must change this password at first login.",
		},
		{
			ID:      TemplateRejected,
			Subject: "Your MedVault Account Request Rejected",
			Body: "Hello {{first_name}},\n\nUnfortunately, your registration request has been rejected.\n\n" +
				"Please contact support if you believe this was a mistake.",
		},
		{
			ID:      TemplatePasswordReset,
			Subject: "Password Reset Request - MedVault",
			Body: "Hello {{first_name}},\n\nYou have requested a password reset for your MedVault account.\n\n" +
				"Reset Token: {{reset_token}}\n\n" +
				"Please use this token to reset your password. If you didn't request this, please ignore this email.",
		},
		{
			ID:      TemplatePasswordResetDone,
			Subject: "Password Reset Successful - MedVault",
			Body: "Hello {{first_name}},\n\nYour password has been successfully reset.\n\n" +
				"You can now login with your new password.",
		},
	} {
		e.RegisterTemplate(t)
	}
	return e
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render performs {{key}} replacement. Keys absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Mailer turns onboarding events into rendered emails. Delivery errors are
// returned to the caller; Mailer never retries.
type Mailer struct {
	sender    EmailSender
	templates *TemplateEngine
	logger    zerolog.Logger
}

func NewMailer(sender EmailSender, templates *TemplateEngine, logger zerolog.Logger) *Mailer {
	if templates == nil {
		templates = NewTemplateEngine()
	}
	return &Mailer{sender: sender, templates: templates, logger: logger}
}

func (m *Mailer) send(ctx context.Context, templateID, to string, data map[string]string) error {
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return err
	}
	if err := m.sender.SendEmail(ctx, to, subject, body); err != nil {
		m.logger.Error().Err(err).Str("template", templateID).Str("to", to).Msg("email delivery failed")
		return fmt.Errorf("send %s email: %w", templateID, err)
	}
	m.logger.Info().Str("template", templateID).Str("to", to).Msg("email sent")
	return nil
}

// NotifyApproval sends the generated credentials to a newly approved user.
func (m *Mailer) NotifyApproval(ctx context.Context, to, firstName, username, password string) error {
	return m.send(ctx, TemplateApproved, to, map[string]string{
		"first_name": firstName,
		"username":   username,
		"password":   password,
	})
}

func (m *Mailer) NotifyRejection(ctx context.Context, to, firstName string) error {
	return m.send(ctx, TemplateRejected, to, map[string]string{"first_name": firstName})
}

func (m *Mailer) NotifyPasswordReset(ctx context.Context, to, firstName, token string) error {
	return m.send(ctx, TemplatePasswordReset, to, map[string]string{
		"first_name":  firstName,
		"reset_token": token,
	})
}

func (m *Mailer) NotifyPasswordResetConfirmation(ctx context.Context, to, firstName string) error {
	return m.send(ctx, TemplatePasswordResetDone, to, map[string]string{"first_name": firstName})
}

// LogSender writes messages to the logger instead of delivering them. Used
// when no SMTP host is configured. Bodies are not logged since they may carry
// credentials.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, _ string) error {
	s.logger.Warn().Str("to", to).Str("subject", subject).Msg("smtp not configured, email not delivered")
	return nil
}

// EmailCall records a single call to SendEmail.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded email calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
