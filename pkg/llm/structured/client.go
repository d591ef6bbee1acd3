// Package structured requests schema-constrained completions from an llm.LLMProvider.
package structured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"companion-be/internal/pkg/logger"
	"companion-be/pkg/llm"
)

// ErrUpstreamFailed wraps every provider failure. Callers never see provider-specific errors.
var ErrUpstreamFailed = errors.New("upstream completion failed")

type Request struct {
	Messages       []llm.Message
	ResponseFormat llm.ResponseFormat
	Temperature    float64
	MaxTokens      int
	Model          string
}

type Client struct {
	provider llm.LLMProvider
	native   bool
	logger   logger.ILogger
}

// NewClient builds a client. native selects provider-side json_schema enforcement;
// otherwise the schema is injected into the prompt as an extra system message.
func NewClient(provider llm.LLMProvider, native bool, log logger.ILogger) *Client {
	return &Client{provider: provider, native: native, logger: log}
}

// CreateStructuredResponse performs exactly one provider call and returns the raw completion text.
func (c *Client) CreateStructuredResponse(ctx context.Context, req Request) (string, error) {
	messages := req.Messages
	opts := []llm.Option{
		llm.WithTemperature(req.Temperature),
		llm.WithMaxTokens(req.MaxTokens),
		llm.WithModel(req.Model),
	}

	if c.native {
		format := req.ResponseFormat
		opts = append(opts, llm.WithResponseFormat(&format))
	} else {
		instruction, err := SchemaInstruction(req.ResponseFormat)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
		}
		messages = withSchemaInstruction(messages, instruction)
	}

	start := time.Now()
	out, err := c.provider.Chat(ctx, messages, opts...)
	details := map[string]interface{}{
		"schema":      req.ResponseFormat.Name,
		"native":      c.native,
		"messages":    len(messages),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		details["error"] = err.Error()
		c.logger.Error("StructuredClient", "Completion request failed", details)
		return "", fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
	}
	if strings.TrimSpace(out) == "" {
		c.logger.Error("StructuredClient", "Completion returned empty content", details)
		return "", fmt.Errorf("%w: empty completion", ErrUpstreamFailed)
	}

	details["response_chars"] = len(out)
	c.logger.Info("StructuredClient", "Completion received", details)
	return out, nil
}

// SchemaInstruction renders the schema as a system prompt for models without native structured output.
func SchemaInstruction(format llm.ResponseFormat) (string, error) {
	schema, err := json.MarshalIndent(format.Schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema %s: %w", format.Name, err)
	}

	var b strings.Builder
	b.WriteString("Respond ONLY with a single JSON object that validates against the JSON schema below. ")
	b.WriteString("Do not wrap it in markdown and do not add any text before or after it.\n\n")
	b.WriteString("Schema name: ")
	b.WriteString(format.Name)
	b.WriteString("\n")
	b.Write(schema)
	return b.String(), nil
}

// withSchemaInstruction places the instruction right after the leading system messages.
func withSchemaInstruction(messages []llm.Message, instruction string) []llm.Message {
	out := make([]llm.Message, 0, len(messages)+1)
	i := 0
	for i < len(messages) && messages[i].Role == llm.RoleSystem {
		out = append(out, messages[i])
		i++
	}
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: instruction})
	return append(out, messages[i:]...)
}
