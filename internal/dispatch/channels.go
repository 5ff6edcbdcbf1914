package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"proudprofit/internal/apperr"
	"proudprofit/internal/config"
	"proudprofit/internal/models"
	"proudprofit/internal/realtime"
)

// Sender delivers one intent on one channel. Implementations return a
// ConfigurationError for missing destinations (permanent, no retry) and
// a TransientError for provider failures worth retrying.
type Sender interface {
	Channel() string
	Send(ctx context.Context, profile *models.UserProfile, intent models.NotificationIntent) error
}

// --- telegram ---------------------------------------------------------------

type TelegramSender struct {
	Bot *tgbotapi.BotAPI
}

func NewTelegramSender(cfg config.TelegramConfig) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramSender{Bot: bot}, nil
}

func (s *TelegramSender) Channel() string { return models.ChannelTelegram }

func (s *TelegramSender) Send(ctx context.Context, profile *models.UserProfile, intent models.NotificationIntent) error {
	if profile == nil || !profile.TelegramEnabled || profile.TelegramChatID == nil {
		return apperr.Configuration("channel not configured")
	}
	msg := tgbotapi.NewMessage(*profile.TelegramChatID, intent.Title+"\n"+intent.Message)
	if _, err := s.Bot.Send(msg); err != nil {
		return apperr.Transient(fmt.Errorf("telegram send: %w", err))
	}
	return nil
}

// --- email ------------------------------------------------------------------

type EmailSender struct {
	Cfg config.EmailConfig
	// sendMail is swapped in tests; defaults to smtp.SendMail.
	sendMail func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	return &EmailSender{Cfg: cfg, sendMail: smtp.SendMail}
}

func (s *EmailSender) Channel() string { return models.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, profile *models.UserProfile, intent models.NotificationIntent) error {
	if profile == nil || !profile.EmailEnabled || profile.Email == nil || strings.TrimSpace(*profile.Email) == "" {
		return apperr.Configuration("channel not configured")
	}
	to := strings.TrimSpace(*profile.Email)
	var auth smtp.Auth
	if s.Cfg.Username != "" {
		auth = smtp.PlainAuth("", s.Cfg.Username, s.Cfg.Password, s.Cfg.Host)
	}
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.Cfg.From, to, intent.Title, intent.Message)
	addr := s.Cfg.Host + ":" + strconv.Itoa(s.Cfg.Port)
	if err := s.sendMail(addr, auth, s.Cfg.From, []string{to}, []byte(body)); err != nil {
		return apperr.Transient(fmt.Errorf("smtp send: %w", err))
	}
	return nil
}

// --- sms --------------------------------------------------------------------

// SMSSender posts to a generic JSON gateway.
type SMSSender struct {
	Cfg  config.SMSConfig
	HTTP *http.Client
}

func NewSMSSender(cfg config.SMSConfig) *SMSSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMSSender{Cfg: cfg, HTTP: &http.Client{Timeout: timeout}}
}

func (s *SMSSender) Channel() string { return models.ChannelSMS }

func (s *SMSSender) Send(ctx context.Context, profile *models.UserProfile, intent models.NotificationIntent) error {
	if profile == nil || !profile.SMSEnabled || profile.Phone == nil || strings.TrimSpace(*profile.Phone) == "" {
		return apperr.Configuration("channel not configured")
	}
	payload, _ := json.Marshal(map[string]string{
		"to":     strings.TrimSpace(*profile.Phone),
		"from":   s.Cfg.Sender,
		"body":   intent.Title + ": " + intent.Message,
		"apiKey": s.Cfg.APIKey,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return apperr.Transient(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return apperr.Transient(fmt.Errorf("sms send: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Transient(fmt.Errorf("sms gateway status=%d body=%s", resp.StatusCode, string(raw)))
	}
	return nil
}

// --- app --------------------------------------------------------------------

// AppSender serves the in-app channel. The durable record is the queue
// row itself (it is what the notification history endpoint lists), so the
// send step is a realtime push to connected clients plus an optional
// push-provider call.
type AppSender struct {
	Hub  *realtime.Hub
	Cfg  config.PushConfig
	HTTP *http.Client
}

func NewAppSender(hub *realtime.Hub, cfg config.PushConfig) *AppSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AppSender{Hub: hub, Cfg: cfg, HTTP: &http.Client{Timeout: timeout}}
}

func (s *AppSender) Channel() string { return models.ChannelApp }

func (s *AppSender) Send(ctx context.Context, profile *models.UserProfile, intent models.NotificationIntent) error {
	if s.Hub != nil {
		s.Hub.Publish(realtime.Event{
			Type: realtime.EventNotification,
			Data: map[string]any{
				"id":      intent.ID,
				"userId":  intent.UserID,
				"title":   intent.Title,
				"message": intent.Message,
			},
		})
	}
	if !s.Cfg.Enabled || profile == nil || profile.PushToken == nil {
		return nil
	}
	payload, _ := json.Marshal(map[string]string{
		"token": *profile.PushToken,
		"title": intent.Title,
		"body":  intent.Message,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return apperr.Transient(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Cfg.APIKey)
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return apperr.Transient(fmt.Errorf("push send: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apperr.Transient(fmt.Errorf("push provider status=%d", resp.StatusCode))
	}
	return nil
}
