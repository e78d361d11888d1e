package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v4"
)

const DefaultTelegramAPIURL = "https://api.telegram.org"

// TelegramSender posts messages to one chat through the Bot API.
type TelegramSender struct {
	bot   *tele.Bot
	chat  *tele.Chat
	token string
}

func NewTelegramSender(token, apiURL string, chatID int64) (*TelegramSender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	if apiURL == "" {
		apiURL = DefaultTelegramAPIURL
	}

	bot, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimSuffix(apiURL, "/"),
		Token:   token,
		Offline: true,
		Client:  &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramSender{
		bot:   bot,
		chat:  &tele.Chat{ID: chatID},
		token: token,
	}, nil
}

func (t *TelegramSender) ChatID() int64 {
	return t.chat.ID
}

// Send posts text to the chat, with Markdown parsing when markdown is set.
func (t *TelegramSender) Send(ctx context.Context, text string, markdown bool) error {
	if err := ctx.Err(); err != nil {
		return &NotificationError{Type: "timeout", Underlying: err}
	}

	var opts []interface{}
	if markdown {
		opts = append(opts, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	}

	log.Debug().
		Int64("chat_id", t.chat.ID).
		Bool("markdown", markdown).
		Int("length", len(text)).
		Msg("Sending telegram message")

	msg, err := t.bot.Send(t.chat, text, opts...)
	if err != nil {
		notifErr := categorizeSendError(err)
		notifErr.Underlying = t.redact(err)
		return notifErr
	}

	log.Debug().
		Int("message_id", msg.ID).
		Msg("Telegram message sent")
	return nil
}

// redact strips the request URL, which embeds the bot token, from transport errors.
func (t *TelegramSender) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = &redactedError{
			msg: fmt.Sprintf("telegram %s request failed: %v", strings.ToLower(urlErr.Op), urlErr.Err),
			err: urlErr.Err,
		}
	}
	if t.token != "" && strings.Contains(err.Error(), t.token) {
		err = &redactedError{msg: strings.ReplaceAll(err.Error(), t.token, "***"), err: errors.Unwrap(err)}
	}
	return err
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
