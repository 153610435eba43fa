package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/reportflow/approval-management-api/internal/config"
	"github.com/reportflow/approval-management-api/internal/models"
)

const mimeBoundary = "reportflow-mail-boundary"

var htmlBodyTemplate = template.Must(template.New("approval_mail").Parse(`<html>
<body>
<p>Report <b>{{.ReportTitle}}</b> (ID {{.ReportID}}) submitted by {{.Operator}} is awaiting your approval.</p>
<p>This is approval stage {{.Stage}} of {{.TotalStages}}.</p>
<p>
<a href="{{.ApproveURL}}">Approve</a> &nbsp;|&nbsp;
<a href="{{.RejectURL}}">Reject</a> &nbsp;|&nbsp;
<a href="{{.DetailURL}}">View details</a>
</p>
<p>The link is single use and stops working once a decision is recorded.</p>
</body>
</html>
`))

// SMTPDispatcher delivers approver notifications over SMTP.
// Each dispatch opens a fresh connection; the context deadline bounds the
// whole exchange including dial, STARTTLS and message transfer.
type SMTPDispatcher struct {
	cfg    *config.NotificationConfig
	logger *logrus.Logger
}

// NewSMTPDispatcher creates a new SMTPDispatcher instance
func NewSMTPDispatcher(cfg *config.NotificationConfig, logger *logrus.Logger) *SMTPDispatcher {
	return &SMTPDispatcher{
		cfg:    cfg,
		logger: logger,
	}
}

// Dispatch sends the approval mail for a pending record
func (d *SMTPDispatcher) Dispatch(ctx context.Context, note *models.ApproverNotification) error {
	message, err := d.buildMessage(note)
	if err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(d.cfg.Timeout)
	}

	addr := d.cfg.GetSMTPAddress()
	conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set SMTP connection deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, d.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if d.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: d.cfg.SMTPHost}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if d.cfg.Password != "" {
		auth := smtp.PlainAuth("", d.cfg.FromAddress, d.cfg.Password, d.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(d.cfg.FromAddress); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(note.Recipient); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := writer.Write(message); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish message body: %w", err)
	}

	if err := client.Quit(); err != nil {
		d.logger.WithError(err).Debug("SMTP quit failed after successful send")
	}

	d.logger.WithFields(logrus.Fields{
		"report_id": note.ReportID,
		"stage":     note.Stage,
		"recipient": note.Recipient,
	}).Info("Approver notification sent")

	return nil
}

// buildMessage assembles a multipart/alternative message with text and HTML
// parts
func (d *SMTPDispatcher) buildMessage(note *models.ApproverNotification) ([]byte, error) {
	var html bytes.Buffer
	if err := htmlBodyTemplate.Execute(&html, note); err != nil {
		return nil, fmt.Errorf("failed to render notification body: %w", err)
	}

	text := fmt.Sprintf(
		"Report %q (ID %s) submitted by %s is awaiting your approval.\r\n"+
			"This is approval stage %d of %d.\r\n\r\n"+
			"Approve: %s\r\n"+
			"Reject:  %s\r\n"+
			"Details: %s\r\n\r\n"+
			"The link is single use and stops working once a decision is recorded.\r\n",
		note.ReportTitle, note.ReportID, note.Operator,
		note.Stage, note.TotalStages,
		note.ApproveURL, note.RejectURL, note.DetailURL,
	)

	subject := fmt.Sprintf("Approval required: %s (stage %d/%d)", note.ReportTitle, note.Stage, note.TotalStages)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", d.cfg.FromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", note.Recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", mimeBoundary)
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(text)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", mimeBoundary)
	msg.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	msg.Write(html.Bytes())
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s--\r\n", mimeBoundary)

	return msg.Bytes(), nil
}
