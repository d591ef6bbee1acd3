package mailer

import (
	"fmt"
	"html"

	"companion-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendDailyReminder(toEmail, fullName string) error
	SendNotification(toEmail, subject, message, actionURL string) error
}

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	sender      Sender
	senderEmail string
	clientURL   string
	logger      logger.ILogger
}

func NewEmailService(host string, port int, username, password, senderEmail, clientURL string, log logger.ILogger) IEmailService {
	return NewEmailServiceWithSender(gomail.NewDialer(host, port, username, password), senderEmail, clientURL, log)
}

func NewEmailServiceWithSender(sender Sender, senderEmail, clientURL string, log logger.ILogger) IEmailService {
	return &emailService{
		sender:      sender,
		senderEmail: senderEmail,
		clientURL:   clientURL,
		logger:      log,
	}
}

func (s *emailService) SendDailyReminder(toEmail, fullName string) error {
	return s.send(toEmail, "Seu momento de reflexão diária", reminderBody(fullName, s.clientURL+"/chat"))
}

func (s *emailService) SendNotification(toEmail, subject, message, actionURL string) error {
	link := ""
	if actionURL != "" {
		link = s.clientURL + actionURL
	}
	return s.send(toEmail, subject, notificationBody(subject, message, link))
}

func reminderBody(fullName, link string) string {
	name := fullName
	if name == "" {
		name = "amigo(a)"
	}
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Olá, %s!</h2>
			<p>O conselho está pronto para ouvir você hoje.</p>
			<a href="%s" style="background-color: #6B4E9B; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Abrir conversa</a>
			<p>Você pode desativar estes lembretes nas suas preferências.</p>
		</div>
	`, html.EscapeString(name), link)
}

func notificationBody(subject, message, link string) string {
	if link != "" {
		link = fmt.Sprintf(`<p><a href="%s">Ver no aplicativo</a></p>`, link)
	}
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>%s</h2>
			<p>%s</p>
			%s
		</div>
	`, html.EscapeString(subject), html.EscapeString(message), link)
}

func (s *emailService) send(toEmail, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error("Mailer", "Failed to send email", map[string]interface{}{
			"to":      toEmail,
			"subject": subject,
			"error":   err.Error(),
		})
		return err
	}

	s.logger.Info("Mailer", "Email sent", map[string]interface{}{"to": toEmail, "subject": subject})
	return nil
}
