// Package notify reports pipeline milestones to an operator channel.
package notify

import (
	"context"
	"fmt"
	"strings"

	"blogsmith/internal/core"
	"blogsmith/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Kind names a pipeline milestone.
type Kind string

const (
	KindScraped  Kind = "scraped"
	KindEnriched Kind = "enriched"
	KindFailed   Kind = "failed"
)

// Event describes one milestone for one article.
type Event struct {
	Kind    Kind
	Article *core.Article
	Err     error
}

// Notifier delivers events. Delivery is best effort: failures are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) {}

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends events as chat messages through a bot.
type Telegram struct {
	api    telegramAPI
	chatID int64
}

// NewTelegram creates a Telegram notifier for the bot token and chat.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// Notify implements Notifier.
func (t *Telegram) Notify(ctx context.Context, e Event) {
	if ctx.Err() != nil {
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, Format(e))
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		logger.Error("Failed to send notification", err, "chat_id", t.chatID, "kind", string(e.Kind))
	}
}

// Format renders an event as plain text.
func Format(e Event) string {
	var b strings.Builder
	title, url := "(unknown article)", ""
	if e.Article != nil {
		title, url = e.Article.Title, e.Article.URL
	}

	switch e.Kind {
	case KindScraped:
		fmt.Fprintf(&b, "New article scraped: %s", title)
	case KindEnriched:
		fmt.Fprintf(&b, "Article enriched: %s", title)
		if e.Article != nil && e.Article.SEOScore != nil {
			fmt.Fprintf(&b, "\nSEO score: %d", *e.Article.SEOScore)
		}
		if e.Article != nil && len(e.Article.Citations) > 0 {
			fmt.Fprintf(&b, "\nSources: %d", len(e.Article.Citations))
		}
	case KindFailed:
		fmt.Fprintf(&b, "Enrichment failed: %s", title)
		if e.Err != nil {
			fmt.Fprintf(&b, "\nError: %v", e.Err)
		}
	default:
		fmt.Fprintf(&b, "%s: %s", e.Kind, title)
	}
	if url != "" {
		fmt.Fprintf(&b, "\n%s", url)
	}
	return b.String()
}
