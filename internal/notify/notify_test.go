package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"blogsmith/internal/core"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type mockAPI struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.sent = append(m.sent, msg)
	}
	return tgbotapi.Message{}, m.err
}

func TestTelegramNotify(t *testing.T) {
	api := &mockAPI{}
	n := &Telegram{api: api, chatID: 42}

	score := 88
	n.Notify(context.Background(), Event{Kind: KindEnriched, Article: &core.Article{
		Title:     "Chatbots",
		URL:       "https://site.example/blogs/chatbots/",
		SEOScore:  &score,
		Citations: []string{"https://a.example/"},
	}})

	if len(api.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(api.sent))
	}
	msg := api.sent[0]
	if msg.ChatID != 42 || !msg.DisableWebPagePreview {
		t.Errorf("unexpected message config %+v", msg)
	}
	for _, want := range []string{"Article enriched: Chatbots", "SEO score: 88", "Sources: 1", "https://site.example/blogs/chatbots/"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("message %q missing %q", msg.Text, want)
		}
	}
}

func TestTelegramSendFailureIsAbsorbed(t *testing.T) {
	api := &mockAPI{err: errors.New("network down")}
	n := &Telegram{api: api, chatID: 1}
	n.Notify(context.Background(), Event{Kind: KindScraped})
	if len(api.sent) != 1 {
		t.Errorf("expected a send attempt, got %d", len(api.sent))
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{"scraped", Event{Kind: KindScraped, Article: &core.Article{Title: "T", URL: "u"}}, "New article scraped: T\nu"},
		{"failed", Event{Kind: KindFailed, Article: &core.Article{Title: "T"}, Err: errors.New("boom")}, "Enrichment failed: T\nError: boom"},
		{"no article", Event{Kind: KindScraped}, "New article scraped: (unknown article)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.event); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}
