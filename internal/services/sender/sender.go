// Package services реализует отправку писем из очередей уведомлений:
// приветственные письма новым пользователям и письма со ссылкой
// на восстановление пароля.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/researchnest/researchnest/internal/lib/sl"
	"github.com/researchnest/researchnest/internal/lib/smtp"
	"github.com/researchnest/researchnest/internal/models"
)

type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.TransportInterface) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendWelcomeEmail отправляет приветственное письмо новому пользователю.
func (s *SenderService) SendWelcomeEmail(body []byte) error {
	var message models.WelcomeMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	name := message.Name
	if name == "" {
		name = message.Email
	}

	to := []string{message.Email}
	subject := "Добро пожаловать в ResearchNest"
	bodyText := fmt.Sprintf("Здравствуйте, %s!\n\nВаш аккаунт создан. Теперь вам доступны поиск научных статей и планы чтения.\n\nКоманда ResearchNest.", name)

	return s.sendEmail(to, subject, bodyText)
}

// SendPasswordResetEmail отправляет письмо со ссылкой на восстановление пароля.
// Ссылка действительна один час.
func (s *SenderService) SendPasswordResetEmail(body []byte) error {
	var message models.PasswordResetMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Восстановление пароля ResearchNest"
	bodyText := fmt.Sprintf("Здравствуйте!\n\nДля смены пароля перейдите по ссылке: %s\n\nСсылка действительна в течение часа. Если вы не запрашивали смену пароля, проигнорируйте это письмо.", message.ResetURL)

	return s.sendEmail(to, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
