// Package persona mints complete identity records. When settings
// carry a usable LLM key the email local part comes from a chat
// completion; otherwise, and on any model failure, a wordlist
// fallback assembles one locally. Passwords and TOTP secrets always
// come from local randomness and never touch the network.
package persona

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/zarlcorp/zghost/internal/identity"
	"github.com/zarlcorp/zghost/internal/vault"
)

// requestTimeout bounds one completion call so a slow model can never
// hang generation.
const requestTimeout = 8 * time.Second

const defaultModel = "gpt-4o-mini"

const (
	minLocalLen = 3
	maxLocalLen = 24
)

const systemPrompt = "You invent short, memorable email local parts for disposable " +
	"addresses. Answer with the local part only: lowercase letters and digits, " +
	"no spaces, no domain, at most 20 characters."

// completeFunc is the seam tests use to fake the model call.
type completeFunc func(ctx context.Context, s vault.Settings, prompt string) (string, error)

// Generator mints identity records for the agent.
type Generator struct {
	ids      *identity.Generator
	complete completeFunc
}

// New wraps an identity generator with the model-backed naming layer.
func New(ids *identity.Generator) *Generator {
	return &Generator{ids: ids, complete: completeChat}
}

// Record mints an identity on domain. Only the local part may come
// from the model; a missing key, a model error, or unusable output
// all leave the wordlist address in place.
func (g *Generator) Record(ctx context.Context, s vault.Settings, domain string) identity.Record {
	rec := g.ids.Record(domain)
	if !s.LLMConfigured() {
		return rec
	}

	local, err := g.localPart(ctx, s)
	if err != nil {
		return rec
	}
	rec.FullEmail = local + "@" + rec.Domain()
	return rec
}

func (g *Generator) localPart(ctx context.Context, s vault.Settings) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	raw, err := g.complete(ctx, s, "Invent one now.")
	if err != nil {
		return "", err
	}
	return sanitizeLocal(raw)
}

// completeChat performs the real chat completion.
func completeChat(ctx context.Context, s vault.Settings, prompt string) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(s.LLMAPIKey)}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := s.Model
	if model == "" {
		model = defaultModel
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(1.1),
		MaxTokens:   openai.Int(12),
	})
	if err != nil {
		return "", fmt.Errorf("persona: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("persona: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// sanitizeLocal normalizes model output into a usable local part.
// Chatty answers keep only their last token; anything that cannot
// yield at least minLocalLen letters and digits is rejected.
func sanitizeLocal(raw string) (string, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", fmt.Errorf("persona: blank completion")
	}
	s := strings.ToLower(fields[len(fields)-1])
	s = strings.Trim(s, "\"'`.,:;!")
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	local := b.String()
	if len(local) < minLocalLen {
		return "", fmt.Errorf("persona: unusable local part %q", raw)
	}
	if len(local) > maxLocalLen {
		local = local[:maxLocalLen]
	}
	return local, nil
}
