package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const sendgridBaseURL = "https://api.sendgrid.com"

// Mailer sends transactional email through the SendGrid v3 REST API.
type Mailer struct {
	client    *resty.Client
	apiKey    string
	fromEmail string
}

// NewMailer returns nil when no API key is configured; a nil *Mailer is a valid
// no-op sender.
func NewMailer(apiKey, fromEmail string, timeout time.Duration) *Mailer {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return newMailerWithBaseURL(sendgridBaseURL, apiKey, fromEmail, timeout)
}

func newMailerWithBaseURL(baseURL, apiKey, fromEmail string, timeout time.Duration) *Mailer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &Mailer{client: client, apiKey: apiKey, fromEmail: fromEmail}
}

type sendgridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendgridPersonalization struct {
	To []sendgridAddress `json:"to"`
}

type sendgridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendgridMail struct {
	Personalizations []sendgridPersonalization `json:"personalizations"`
	From             sendgridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendgridContent         `json:"content"`
}

// SendEmail sends one HTML message.
func (m *Mailer) SendEmail(ctx context.Context, to, toName, subject, htmlBody string) error {
	if m == nil {
		return nil
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient email is required")
	}

	payload := sendgridMail{
		Personalizations: []sendgridPersonalization{{To: []sendgridAddress{{Email: to, Name: toName}}}},
		From:             sendgridAddress{Email: m.fromEmail, Name: "CourseHub"},
		Subject:          subject,
		Content:          []sendgridContent{{Type: "text/html", Value: htmlBody}},
	}

	resp, err := m.client.R().SetContext(ctx).SetBody(payload).Post("/v3/mail/send")
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// SendEnrollmentEmail sends an email notification when a student enrolls in a course
func (m *Mailer) SendEnrollmentEmail(ctx context.Context, email, studentName, courseTitle, batchName string) error {
	if m == nil {
		return nil
	}
	batchLine := ""
	if batchName != "" {
		batchLine = fmt.Sprintf(`<p style="font-size: 14px; color: #666666; text-align: center;">Batch: <strong>%s</strong></p>`, batchName)
	}

	body := fmt.Sprintf(`
		<html>
			<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
				<div style="max-width: 600px; margin: auto; background-color: #ffffff; border-radius: 8px; padding: 30px;">
					<h2 style="color: #333333; text-align: center;">Enrollment Successful!</h2>
					<p style="font-size: 16px; color: #555555;">Dear %s,</p>
					<p style="font-size: 16px; color: #555555;">You have successfully enrolled in:</p>
					<h3 style="text-align: center; color: #4CAF50; margin: 20px 0;">%s</h3>
					%s
					<p style="font-size: 14px; color: #666666;">You can now open your lessons, submit quizzes and assignments, and follow your progress from the dashboard.</p>
					<p style="text-align: center; font-size: 12px; color: #bbbbbb; margin-top: 20px;">CourseHub Team</p>
				</div>
			</body>
		</html>
	`, studentName, courseTitle, batchLine)

	return m.SendEmail(ctx, email, studentName, "Course Enrollment Confirmation", body)
}
