package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/example/agri-workflow/internal/navigation"
	"github.com/example/agri-workflow/internal/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(sendErr error) (*Service, *[]sentMail) {
	var sent []sentMail
	s := NewService("smtp.local", "2525", "noreply@agri.test", map[string]string{
		"bank": "loans@bank.test",
	})
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return sendErr
	}
	return s, &sent
}

func sample(role navigation.Role) notification.Notification {
	return notification.Notification{
		Role:        role,
		AggregateID: "fin_1",
		Subject:     "New financing application fin_1",
		Body:        "tractor <repair>",
		At:          time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestService_SendDeliversToRoleMailbox(t *testing.T) {
	s, sent := newTestService(nil)

	require.NoError(t, s.Send(context.Background(), sample(navigation.RoleBank)))

	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "smtp.local:2525", mail.addr)
	assert.Equal(t, "noreply@agri.test", mail.from)
	assert.Equal(t, []string{"loans@bank.test"}, mail.to)
	assert.Contains(t, mail.msg, "Subject: New financing application fin_1\r\n")
	assert.Contains(t, mail.msg, "To: loans@bank.test\r\n")
	assert.Contains(t, mail.msg, "tractor &lt;repair&gt;")
}

func TestService_SendSkipsRolesWithoutMailbox(t *testing.T) {
	s, sent := newTestService(nil)

	require.NoError(t, s.Send(context.Background(), sample(navigation.RoleFarmer)))
	assert.Empty(t, *sent)
}

func TestService_SendWrapsTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	s, _ := newTestService(boom)

	err := s.Send(context.Background(), sample(navigation.RoleBank))

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "loans@bank.test")
}

func TestService_SendHonorsCancelledContext(t *testing.T) {
	s, sent := newTestService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Send(ctx, sample(navigation.RoleBank)), context.Canceled)
	assert.Empty(t, *sent)
}

func TestBuildNotificationBody(t *testing.T) {
	n := sample(navigation.RoleBank)
	n.Body = ""

	body := BuildNotificationBody(n)

	assert.Contains(t, body, "New financing application fin_1")
	assert.Contains(t, body, "fin_1")
	assert.Contains(t, body, "bank workspace at 2026-04-01 08:00:00")
	assert.NotContains(t, body, "background: #f8f9fa")
}
