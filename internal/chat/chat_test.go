package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"blogsmith/internal/core"
	"blogsmith/internal/llm"

	"github.com/google/go-cmp/cmp"
)

type fakeProvider struct {
	reply   string
	err     error
	model   string
	system  string
	history []llm.ChatMessage
	message string
	calls   int
}

func (p *fakeProvider) Chat(ctx context.Context, model, system string, history []llm.ChatMessage, message string) (string, error) {
	p.calls++
	p.model, p.system, p.history, p.message = model, system, history, message
	return p.reply, p.err
}

func TestReply(t *testing.T) {
	p := &fakeProvider{reply: "Hi there"}
	a := New(p, "gemini-2.5-flash")

	got, err := a.Reply(context.Background(), Request{
		History: []llm.ChatMessage{{Role: "user", Text: "hello"}, {Role: "model", Text: "hey"}},
		Message: "  what is this site?  ",
	})
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if got != "Hi there" {
		t.Errorf("unexpected reply %q", got)
	}
	if p.model != "gemini-2.5-flash" || p.message != "what is this site?" {
		t.Errorf("unexpected call model=%q message=%q", p.model, p.message)
	}
	if len(p.history) != 2 {
		t.Errorf("expected history to be forwarded, got %v", p.history)
	}
	if !strings.Contains(p.system, "browsing the article list") {
		t.Errorf("system prompt should describe the list context:\n%s", p.system)
	}
}

func TestReplyOffline(t *testing.T) {
	got, err := New(nil, "").Reply(context.Background(), Request{Message: "hello"})
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if got != OfflineReply {
		t.Errorf("expected offline reply, got %q", got)
	}
}

func TestReplyFallsBackOnProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("llm provider error (other): boom")}
	got, err := New(p, "").Reply(context.Background(), Request{Message: "hello"})
	if err != nil {
		t.Fatalf("provider failures should not surface, got %v", err)
	}
	if got != FallbackReply {
		t.Errorf("expected fallback reply, got %q", got)
	}
	if p.model != llm.DefaultModel {
		t.Errorf("expected default model, got %q", p.model)
	}
}

func TestReplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakeProvider{err: fmt.Errorf("send: %w", context.Canceled)}
	if _, err := New(p, "").Reply(ctx, Request{Message: "hello"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReplyRequiresMessage(t *testing.T) {
	p := &fakeProvider{}
	if _, err := New(p, "").Reply(context.Background(), Request{Message: "   "}); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if p.calls != 0 {
		t.Errorf("provider should not be called, got %d calls", p.calls)
	}
}

func TestSystemPromptWithArticle(t *testing.T) {
	a := &core.Article{
		Title:           "Chatbots in Support",
		URL:             "https://example.com/blogs/chatbots",
		OriginalContent: "original body",
		UpdatedContent:  "# Rewritten body",
		AISummary:       "Short summary",
		AITags:          []string{"ai", "support"},
	}
	got := SystemPrompt(a)
	for _, want := range []string{`"Chatbots in Support"`, "https://example.com/blogs/chatbots", "Short summary", "ai, support", "# Rewritten body"} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "original body") {
		t.Error("the rewrite should be preferred over the original text")
	}
}

func TestHistory(t *testing.T) {
	in := []llm.ChatMessage{
		{Role: "user", Text: " q1 "},
		{Role: "admin", Text: "a1"},
		{Role: "assistant", Text: "a2"},
		{Role: "system", Text: "sneaky"},
		{Role: "model", Text: "   "},
	}
	want := []llm.ChatMessage{
		{Role: "user", Text: "q1"},
		{Role: "model", Text: "a1"},
		{Role: "model", Text: "a2"},
		{Role: "user", Text: "sneaky"},
	}
	if diff := cmp.Diff(want, History(in)); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	long := make([]llm.ChatMessage, MaxHistory+5)
	for i := range long {
		long[i] = llm.ChatMessage{Role: "user", Text: fmt.Sprintf("m%d", i)}
	}
	got := History(long)
	if len(got) != MaxHistory || got[0].Text != "m5" {
		t.Errorf("expected the last %d turns starting at m5, got %d starting at %q", MaxHistory, len(got), got[0].Text)
	}
}
