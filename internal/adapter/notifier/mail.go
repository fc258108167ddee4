package notifier

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"text/template"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hive-corporation/responder/internal/config"
	"github.com/hive-corporation/responder/internal/core/domain"
	"github.com/hive-corporation/responder/internal/metrics"
)

const relayVendor = "SMTP relay"

var noticeTemplate = template.Must(template.New("notice").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: Notification from Security Team\r\n" +
		"Date: {{.Date}}\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"Hello there!\r\n" +
		"\r\n" +
		"It appears your computer {{.Hostname}} has been infected with malware. " +
		"Please bring it to the helpdesk as soon as possible for inspection.\r\n" +
		"\r\n" +
		"A temporary device will be provided while yours is being examined.\r\n" +
		"\r\n" +
		"Thank you,\r\n" +
		"Security\r\n",
))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailNotifier sends infection notices through a plain, unauthenticated
// SMTP relay.
type MailNotifier struct {
	cfg    config.SMTPConfig
	send   sendFunc
	now    func() time.Time
	logger hclog.Logger
}

func NewMailNotifier(cfg config.SMTPConfig, logger hclog.Logger) *MailNotifier {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &MailNotifier{
		cfg:    cfg,
		send:   smtp.SendMail,
		now:    time.Now,
		logger: logger.Named("mail"),
	}
}

// SendInfectionNotice asks the user of hostname to bring the computer in.
func (m *MailNotifier) SendInfectionNotice(ctx context.Context, to string, hostname string) error {
	if err := m.cfg.Validate(); err != nil {
		return err
	}
	if !domain.LooksLikeEmail(to) {
		return fmt.Errorf("invalid recipient address %q", to)
	}

	msg, err := m.buildMessage(to, hostname)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	// net/smtp has no context support, so the send runs in its own goroutine
	done := make(chan error, 1)
	go func() {
		done <- m.send(m.cfg.Addr(), nil, m.cfg.SenderAddr, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		metrics.RecordNotification("failed")
		return &domain.UpstreamError{Vendor: relayVendor, Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			metrics.RecordNotification("failed")
			m.logger.Error("❌ failed to send notice", "to", to, "hostname", hostname, "error", err)
			return &domain.UpstreamError{Vendor: relayVendor, Err: err}
		}
	}

	metrics.RecordNotification("sent")
	m.logger.Info("📧 notice sent", "to", to, "hostname", hostname)
	return nil
}

func (m *MailNotifier) buildMessage(to, hostname string) ([]byte, error) {
	// Header injection guard
	for _, v := range []string{to, hostname, m.cfg.SenderAddr} {
		if strings.ContainsAny(v, "\r\n") {
			return nil, fmt.Errorf("line break in header value %q", v)
		}
	}

	var buf bytes.Buffer
	err := noticeTemplate.Execute(&buf, struct {
		From, To, Date, Hostname string
	}{
		From:     m.cfg.SenderAddr,
		To:       to,
		Date:     m.now().Format(time.RFC1123Z),
		Hostname: hostname,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
