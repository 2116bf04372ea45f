// Package chat answers visitor questions about the blog and its rewritten articles.
package chat

import (
	"context"
	"fmt"
	"strings"

	"blogsmith/internal/core"
	"blogsmith/internal/fetch"
	"blogsmith/internal/llm"
	"blogsmith/internal/logger"
)

const (
	// OfflineReply is returned when no model is configured.
	OfflineReply = "I'm currently offline because no Gemini API key is configured."

	// FallbackReply is returned when the model call fails.
	FallbackReply = "I ran into a processing error. Please try again in a moment."

	// MaxHistory bounds the earlier turns replayed to the model.
	MaxHistory = 20

	maxArticleChars = 4000
)

const basePrompt = `You are the blogsmith assistant, a helpful guide on a blog whose articles are
researched and rewritten with AI.

You know how the site works:
- Articles are scraped from the source blog and stored as pending.
- Editors search the web for related articles and approve the useful ones as sources.
- Gemini rewrites each article with a summary, tags, SEO analysis and numbered citations.
- Earlier rewrites are kept and can be restored.

Be professional, friendly and concise. Answer general questions as well.
If you do not know something about a specific article, say so instead of guessing.`

// Provider is the conversational model backend.
type Provider interface {
	Chat(ctx context.Context, model, system string, history []llm.ChatMessage, message string) (string, error)
}

// Request is one visitor message plus the conversation so far.
type Request struct {
	History []llm.ChatMessage
	Message string
	// Article is the page the visitor is reading, if any.
	Article *core.Article
}

// Assistant answers chat requests. A nil provider makes it permanently offline.
type Assistant struct {
	provider Provider
	model    string
}

// New creates an Assistant using model, or llm.DefaultModel when empty.
func New(p Provider, model string) *Assistant {
	if model == "" {
		model = llm.DefaultModel
	}
	return &Assistant{provider: p, model: model}
}

// Online reports whether replies come from a model.
func (a *Assistant) Online() bool {
	return a != nil && a.provider != nil
}

// Reply answers req. Model failures are logged and answered with FallbackReply;
// only invalid input and a cancelled context are returned as errors.
func (a *Assistant) Reply(ctx context.Context, req Request) (string, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return "", fmt.Errorf("%w: message is required", core.ErrInvalidInput)
	}
	if !a.Online() {
		return OfflineReply, nil
	}

	reply, err := a.provider.Chat(ctx, a.model, SystemPrompt(req.Article), History(req.History), message)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Error("Chat reply failed", err, "model", a.model)
		return FallbackReply, nil
	}
	return reply, nil
}

// SystemPrompt returns the assistant instructions, grounded on article when given.
func SystemPrompt(article *core.Article) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nCurrent context:\n")
	if article == nil {
		b.WriteString("The visitor is browsing the article list.")
		return b.String()
	}

	fmt.Fprintf(&b, "The visitor is reading %q (%s).\n", article.Title, article.URL)
	if article.AISummary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", article.AISummary)
	}
	if len(article.AITags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(article.AITags, ", "))
	}
	body := article.UpdatedContent
	if body == "" {
		body = article.OriginalContent
	}
	if body = strings.TrimSpace(body); body != "" {
		fmt.Fprintf(&b, "Article text:\n\"\"\"\n%s\n\"\"\"", fetch.Truncate(body, maxArticleChars))
	}
	return strings.TrimRight(b.String(), "\n")
}

// History drops blank turns, maps every non-model role to user and keeps the
// last MaxHistory turns.
func History(in []llm.ChatMessage) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(in))
	for _, m := range in {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role := llm.RoleUser
		if m.Role == llm.RoleModel || m.Role == "assistant" || m.Role == "admin" {
			role = llm.RoleModel
		}
		out = append(out, llm.ChatMessage{Role: role, Text: text})
	}
	if len(out) > MaxHistory {
		out = out[len(out)-MaxHistory:]
	}
	return out
}
