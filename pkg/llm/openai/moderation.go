package openai

import (
	"context"
	"fmt"
	"sort"

	"companion-be/pkg/llm"
)

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
	Error *apiError `json:"error,omitempty"`
}

// ModerateContent calls /moderations. Errors are returned as-is; wrap with llm.NewFailOpenModerator.
func (p *OpenAIProvider) ModerateContent(ctx context.Context, text string) (*llm.ModerationResult, error) {
	var modResp moderationResponse
	if err := p.post(ctx, "/moderations", moderationRequest{Model: p.moderationModel, Input: text}, &modResp); err != nil {
		return nil, err
	}
	if modResp.Error != nil {
		return nil, fmt.Errorf("openai moderation error: %s", modResp.Error.Message)
	}
	if len(modResp.Results) == 0 {
		return nil, fmt.Errorf("empty moderation results")
	}

	result := modResp.Results[0]
	var categories []string
	for name, hit := range result.Categories {
		if hit {
			categories = append(categories, name)
		}
	}
	sort.Strings(categories)

	return &llm.ModerationResult{
		Checked:    true,
		Flagged:    result.Flagged,
		Categories: categories,
	}, nil
}
