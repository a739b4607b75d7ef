package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/semscan/semscan-api/internal/app/models"
)

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
	BaseURL   string // Base URL for the application
}

// Notifier sends the seminar lifecycle emails over SMTP.
type Notifier struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewNotifier creates a new SMTP-backed Notifier
func NewNotifier(config SMTPConfig, logger zerolog.Logger) *Notifier {
	return &Notifier{
		config: config,
		logger: logger,
	}
}

// SendApprovalRequest emails the supervisor the approve/decline links for a
// pending registration.
func (s *Notifier) SendApprovalRequest(presenter *models.Presenter, slot *models.SeminarSlot, reg *models.Registration, token string) error {
	approveURL := fmt.Sprintf("%s/api/v1/approve/%s", s.config.BaseURL, token)
	declineURL := fmt.Sprintf("%s/api/v1/decline/%s", s.config.BaseURL, token)

	// Without SMTP credentials the links are logged instead (development only)
	if s.config.Username == "" || s.config.Password == "" {
		s.logger.Warn().
			Str("toEmail", reg.SupervisorEmail).
			Str("approveURL", approveURL).
			Str("declineURL", declineURL).
			Msg("SMTP credentials not configured - approval request not sent. Use the URLs above for testing.")
		return nil
	}

	subject := fmt.Sprintf("Seminar registration approval needed - %s", presenter.FullName())

	body := fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Seminar Registration Approval</h2>
				<p>Dear %s,</p>
				<p>Your student <strong>%s</strong> registered to present at the seminar on
				<strong>%s</strong>, %s-%s (building %s, room %s).</p>
				<p><strong>Topic:</strong> %s</p>

				<div style="text-align: center; margin: 30px 0;">
					<a href="%s" style="background-color: #2e7d32; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">Approve</a>
					&nbsp;&nbsp;
					<a href="%s" style="background-color: #c62828; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">Decline</a>
				</div>

				<p>The links can be used once and expire on %s.</p>

				<p>Best regards,<br>The Seminar Team</p>
			</div>
		</body>
		</html>
	`, reg.SupervisorName, presenter.FullName(),
		slot.SlotDate.Format("2006-01-02"), slot.StartTime, slot.EndTime, slot.Building, slot.Room,
		reg.Topic, approveURL, declineURL, reg.TokenExpiresAt.Format("2006-01-02 15:04"))

	return s.sendHTMLEmail(reg.SupervisorEmail, subject, body)
}

// SendApprovalResult notifies the presenter that the supervisor approved or
// declined the registration.
func (s *Notifier) SendApprovalResult(presenter *models.Presenter, slot *models.SeminarSlot, approved bool, reason string) error {
	if s.config.Username == "" || s.config.Password == "" {
		s.logger.Warn().
			Str("toEmail", presenter.Email).
			Bool("approved", approved).
			Msg("SMTP credentials not configured - approval result not sent.")
		return nil
	}

	var subject, verdict string
	if approved {
		subject = "Your seminar registration was approved"
		verdict = "<p>Your supervisor <strong>approved</strong> your seminar registration. Your presentation slot is confirmed.</p>"
	} else {
		subject = "Your seminar registration was declined"
		verdict = "<p>Your supervisor <strong>declined</strong> your seminar registration.</p>"
		if reason != "" {
			verdict += fmt.Sprintf("<p><strong>Reason:</strong> %s</p>", reason)
		}
	}

	body := fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Seminar Registration Update</h2>
				<p>Hello %s,</p>
				%s
				<p><strong>Slot:</strong> %s, %s-%s (building %s, room %s)</p>

				<p>Best regards,<br>The Seminar Team</p>
			</div>
		</body>
		</html>
	`, presenter.FullName(), verdict,
		slot.SlotDate.Format("2006-01-02"), slot.StartTime, slot.EndTime, slot.Building, slot.Room)

	return s.sendHTMLEmail(presenter.Email, subject, body)
}

// SendPromotionOffer emails the presenter the confirm/decline links for a
// freed seat on a slot they queued for.
func (s *Notifier) SendPromotionOffer(presenter *models.Presenter, slot *models.SeminarSlot, entry *models.WaitingListEntry, token string) error {
	confirmURL := fmt.Sprintf("%s/api/waiting-list/confirm?token=%s", s.config.BaseURL, token)
	declineURL := fmt.Sprintf("%s/api/waiting-list/decline?token=%s", s.config.BaseURL, token)

	if s.config.Username == "" || s.config.Password == "" {
		s.logger.Warn().
			Str("toEmail", presenter.Email).
			Str("confirmURL", confirmURL).
			Str("declineURL", declineURL).
			Msg("SMTP credentials not configured - promotion offer not sent. Use the URLs above for testing.")
		return nil
	}

	subject := "A seminar seat opened up for you"

	body := fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Seminar Seat Available</h2>
				<p>Hello %s,</p>
				<p>A seat opened up on the seminar slot you were waiting for:
				<strong>%s</strong>, %s-%s (building %s, room %s).</p>

				<div style="text-align: center; margin: 30px 0;">
					<a href="%s" style="background-color: #2e7d32; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">Take the Seat</a>
					&nbsp;&nbsp;
					<a href="%s" style="background-color: #c62828; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">Decline</a>
				</div>

				<p>This offer expires on %s. If you do not respond in time, the
				seat is offered to the next presenter in the queue.</p>

				<p>Best regards,<br>The Seminar Team</p>
			</div>
		</body>
		</html>
	`, presenter.FullName(),
		slot.SlotDate.Format("2006-01-02"), slot.StartTime, slot.EndTime, slot.Building, slot.Room,
		confirmURL, declineURL, entry.PromotionExpiresAt.Format("2006-01-02 15:04"))

	return s.sendHTMLEmail(presenter.Email, subject, body)
}

// SendWaitingListCancellation notifies the supervisor that the presenter left
// a waiting list.
func (s *Notifier) SendWaitingListCancellation(entry *models.WaitingListEntry, slot *models.SeminarSlot) error {
	if s.config.Username == "" || s.config.Password == "" {
		s.logger.Warn().
			Str("toEmail", entry.SupervisorEmail).
			Str("username", entry.PresenterUsername).
			Msg("SMTP credentials not configured - cancellation email not sent.")
		return nil
	}

	subject := "Seminar waiting list cancellation"

	body := fmt.Sprintf(`
		<html>
		<body>
			<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
				<h2 style="color: #333;">Waiting List Cancellation</h2>
				<p>Dear %s,</p>
				<p>Your student <strong>%s</strong> was removed from the waiting list of the seminar on
				<strong>%s</strong>, %s-%s (building %s, room %s).</p>

				<p>Best regards,<br>The Seminar Team</p>
			</div>
		</body>
		</html>
	`, entry.SupervisorName, entry.PresenterUsername,
		slot.SlotDate.Format("2006-01-02"), slot.StartTime, slot.EndTime, slot.Building, slot.Room)

	return s.sendHTMLEmail(entry.SupervisorEmail, subject, body)
}

// sendHTMLEmail sends an HTML email
func (s *Notifier) sendHTMLEmail(toEmail, subject, htmlBody string) error {
	// Set up authentication information
	auth := smtp.PlainAuth(
		"",
		s.config.Username,
		s.config.Password,
		s.config.Host,
	)

	// Set up email headers
	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	headers["To"] = toEmail
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	// Construct message
	message := ""
	for key, value := range headers {
		message += fmt.Sprintf("%s: %s\r\n", key, value)
	}
	message += "\r\n" + htmlBody

	// Connect to the server, set up a connection
	serverAddress := s.config.Host + ":" + strconv.Itoa(s.config.Port)

	// Use TLS if configured
	if s.config.UseTLS {
		tlsConfig := &tls.Config{
			InsecureSkipVerify: true,
			ServerName:         s.config.Host,
		}

		// Connect to the SMTP server with TLS
		conn, err := tls.Dial("tcp", serverAddress, tlsConfig)
		if err != nil {
			s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to connect to SMTP server")
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, s.config.Host)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to create SMTP client")
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
		defer client.Quit()

		// Authenticate
		if err = client.Auth(auth); err != nil {
			s.logger.Error().Err(err).Msg("SMTP authentication failed")
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}

		// Set the sender and recipient
		if err = client.Mail(s.config.FromEmail); err != nil {
			return fmt.Errorf("failed to set sender: %w", err)
		}
		if err = client.Rcpt(toEmail); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}

		// Send the email body
		w, err := client.Data()
		if err != nil {
			return fmt.Errorf("failed to get data writer: %w", err)
		}
		_, err = w.Write([]byte(message))
		if err != nil {
			return fmt.Errorf("failed to write email message: %w", err)
		}
		err = w.Close()
		if err != nil {
			return fmt.Errorf("failed to close data writer: %w", err)
		}

		return nil
	}

	// Simple SMTP without TLS
	err := smtp.SendMail(
		serverAddress,
		auth,
		s.config.FromEmail,
		[]string{toEmail},
		[]byte(message),
	)
	if err != nil {
		s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
