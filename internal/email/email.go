package email

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/kafka"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender turns notification events into emails. Without an SMTP host it only
// logs what it would have sent.
type Sender struct {
	cfg      config.MailConfig
	resetURL string
	send     sendFunc
}

func NewSender(cfg config.MailConfig, resetURL string) *Sender {
	return &Sender{cfg: cfg, resetURL: resetURL, send: smtp.SendMail}
}

func (s *Sender) Send(ctx context.Context, event kafka.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, ok := s.Compose(event)
	if !ok {
		return nil
	}

	if !s.cfg.Enabled() {
		log.Printf("[EMAIL] mode=log to=%s subject=%q type=%s", msg.To, msg.Subject, event.Type)
		return nil
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(addr, auth, s.from(), []string{msg.To}, msg.Bytes(s.from())); err != nil {
		return fmt.Errorf("send %s email to %s: %w", event.Type, msg.To, err)
	}
	log.Printf("[EMAIL] mode=smtp to=%s type=%s", msg.To, event.Type)
	return nil
}

// Compose builds the email for an event. It reports false for events that do
// not notify anyone.
func (s *Sender) Compose(event kafka.Event) (Message, bool) {
	if !event.Notifies() {
		return Message{}, false
	}

	msg := Message{To: event.Email}
	greeting := "Hello"
	if event.Name != "" {
		greeting = "Hello " + event.Name
	}

	switch event.Type {
	case kafka.EventBookingCreated:
		msg.Subject = "Your bus booking is confirmed"
		msg.Body = fmt.Sprintf("%s,\n\nYour booking %s is confirmed.\n\nPassenger: %s\nRoute: %s\nDeparture: %s\nSeats: %d\n\nYou can download your e-ticket from your booking history.\n",
			greeting, event.BookingReference, event.PassengerName, orDash(event.Route), orDash(event.Departure), event.Seats)
	case kafka.EventUserRegistered:
		msg.Subject = "Welcome to Bus Booking"
		msg.Body = fmt.Sprintf("%s,\n\nYour account has been created. You can now log in and book trips.\n", greeting)
	case kafka.EventPasswordResetRequested:
		msg.Subject = "Reset your password"
		msg.Body = fmt.Sprintf("%s,\n\nUse the link below to choose a new password. It expires at %s.\n\n%s\n\nIf you did not ask for this, ignore this email.\n",
			greeting, event.ResetExpiresAt.UTC().Format("2006-01-02 15:04 MST"), s.resetLink(event.ResetToken))
	case kafka.EventPasswordChanged:
		msg.Subject = "Your password was changed"
		msg.Body = fmt.Sprintf("%s,\n\nThe password for your account was just changed. If this was not you, reset it immediately.\n", greeting)
	default:
		return Message{}, false
	}
	return msg, true
}

func (s *Sender) resetLink(token string) string {
	base := s.resetURL
	if base == "" {
		return "Reset token: " + token
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

func (s *Sender) from() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.Username
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func (m Message) Bytes(from string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}
