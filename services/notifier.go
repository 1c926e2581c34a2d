package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/kendall-kelly/service-crm-api/errs"
	"github.com/kendall-kelly/service-crm-api/models"
)

// Notifier delivers chat messages to subscribed customers
type Notifier interface {
	// ResolveChatSession finds the chat session id for a chat handle ("@name").
	// Called once while a customer opts in.
	ResolveChatSession(ctx context.Context, handle string) (string, error)
	// Deliver sends message to a resolved chat session.
	Deliver(ctx context.Context, sessionID, message string) error
}

// ErrChatSessionNotFound is returned when no recent chat matches the handle
var ErrChatSessionNotFound = errors.New("chat session not found")

// TelegramConfig is the injected configuration of TelegramNotifier
type TelegramConfig struct {
	Endpoint string // base URL, e.g. https://api.telegram.org
	Token    string // bot credential
	Timeout  time.Duration
}

// TelegramNotifier implements Notifier on the Telegram Bot API
type TelegramNotifier struct {
	cfg    TelegramConfig
	client *http.Client

	mu  sync.Mutex
	api *tgbotapi.BotAPI
}

// NewTelegramNotifier creates a notifier. The bot is contacted lazily on first use.
func NewTelegramNotifier(cfg TelegramConfig) *TelegramNotifier {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.telegram.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &TelegramNotifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// bot returns the connected bot, connecting (getMe) on first success only
func (n *TelegramNotifier) bot() (*tgbotapi.BotAPI, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.api != nil {
		return n.api, nil
	}
	if n.cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	endpoint := strings.TrimRight(n.cfg.Endpoint, "/") + "/bot%s/%s"
	api, err := tgbotapi.NewBotAPIWithClient(n.cfg.Token, endpoint, n.client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	n.api = api
	return api, nil
}

// ResolveChatSession scans pending bot updates for a private chat whose
// username matches handle and returns the chat id of the latest match
func (n *TelegramNotifier) ResolveChatSession(ctx context.Context, handle string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	username := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if username == "" {
		return "", fmt.Errorf("empty chat handle")
	}

	api, err := n.bot()
	if err != nil {
		return "", err
	}

	updates, err := api.GetUpdates(tgbotapi.NewUpdate(0))
	if err != nil {
		return "", fmt.Errorf("failed to fetch telegram updates: %w", err)
	}

	found := ""
	for _, update := range updates {
		if update.Message == nil {
			continue
		}
		if strings.EqualFold(update.Message.Chat.UserName, username) {
			found = strconv.FormatInt(update.Message.Chat.ID, 10)
		}
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrChatSessionNotFound, handle)
	}
	return found, nil
}

// Deliver sends message to the chat identified by sessionID
func (n *TelegramNotifier) Deliver(ctx context.Context, sessionID, message string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrNotificationDeliveryFailed, err)
	}
	chatID, err := strconv.ParseInt(sessionID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid chat session id %q", errs.ErrNotificationDeliveryFailed, sessionID)
	}

	api, err := n.bot()
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrNotificationDeliveryFailed, err)
	}
	if _, err := api.Send(tgbotapi.NewMessage(chatID, message)); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrNotificationDeliveryFailed, err)
	}
	return nil
}

// DisabledNotifier is used when no bot credential is configured
type DisabledNotifier struct{}

// ResolveChatSession always fails; subscriptions cannot be confirmed
func (DisabledNotifier) ResolveChatSession(context.Context, string) (string, error) {
	return "", fmt.Errorf("chat notifications are not configured")
}

// Deliver always fails
func (DisabledNotifier) Deliver(context.Context, string, string) error {
	return fmt.Errorf("%w: chat notifications are not configured", errs.ErrNotificationDeliveryFailed)
}

// StatusMessage renders the chat message sent after a staff update
func StatusMessage(order *models.Order) string {
	return fmt.Sprintf("Order #%d %s\nStatus: %s %s",
		order.ID,
		order.Category.Display(),
		order.Status.Display(),
		order.UpdatedAt.Format("02 Jan, 2006 - 15h04m"),
	)
}
