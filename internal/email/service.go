package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/example/agri-workflow/internal/navigation"
	"github.com/example/agri-workflow/internal/notification"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service delivers notifications via SMTP to one mailbox per role
type Service struct {
	host       string
	port       string
	from       string
	recipients map[navigation.Role]string
	send       sendFunc
}

var _ notification.Sender = (*Service)(nil)

// NewService creates a new email service
func NewService(host, port, from string, recipients map[string]string) *Service {
	byRole := make(map[navigation.Role]string, len(recipients))
	for role, addr := range recipients {
		byRole[navigation.Role(role)] = addr
	}
	return &Service{
		host:       host,
		port:       port,
		from:       from,
		recipients: byRole,
		send:       smtp.SendMail,
	}
}

// Send mails n to its role's mailbox; roles without one are skipped
func (s *Service) Send(ctx context.Context, n notification.Notification) error {
	to, ok := s.recipients[n.Role]
	if !ok {
		log.Printf("[Email] No mailbox for role %s, dropping %q", n.Role, n.Subject)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, n.Subject, BuildNotificationBody(n))
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := s.send(addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
