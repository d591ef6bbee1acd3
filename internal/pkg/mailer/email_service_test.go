package mailer

import (
	"errors"
	"testing"

	"companion-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, m...)
	return nil
}

func TestSendDailyReminderHeaders(t *testing.T) {
	sender := &captureSender{}
	svc := NewEmailServiceWithSender(sender, "no-reply@companion.app", "https://app.companion.test", logger.NewNopLogger())

	require.NoError(t, svc.SendDailyReminder("ana@example.com", "Ana"))
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	assert.Equal(t, []string{"ana@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"no-reply@companion.app"}, m.GetHeader("From"))
}

func TestReminderBody(t *testing.T) {
	body := reminderBody("Ana <Souza>", "https://app.companion.test/chat")
	assert.Contains(t, body, `href="https://app.companion.test/chat"`)
	assert.Contains(t, body, "Ana &lt;Souza&gt;")

	assert.Contains(t, reminderBody("", "x"), "amigo(a)")
}

func TestNotificationBody(t *testing.T) {
	assert.Contains(t, notificationBody("Título", "Mensagem", "https://app/x"), `<a href="https://app/x">`)
	assert.NotContains(t, notificationBody("Título", "Mensagem", ""), "<a ")
}

func TestSendNotificationPropagatesError(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	svc := NewEmailServiceWithSender(sender, "no-reply@companion.app", "", logger.NewNopLogger())

	err := svc.SendNotification("ana@example.com", "Nova decisão", "Sua decisão está pronta", "/chat_sessions/1")
	assert.EqualError(t, err, "smtp down")
}
