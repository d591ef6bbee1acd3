package schema

import (
	"companion-be/internal/entity"
	"companion-be/pkg/llm"
)

const (
	CouncilSchemaName  = "council_response"
	DecisionSchemaName = "decision_response"
)

func stringProp() map[string]interface{} {
	return map[string]interface{}{"type": "string"}
}

func object(props map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func topicsProp() map[string]interface{} {
	return map[string]interface{}{
		"type":     "array",
		"items":    stringProp(),
		"maxItems": MaxSuggestedTopics,
	}
}

// CouncilSchema describes one response per participating character.
func CouncilSchema() map[string]interface{} {
	message := object(map[string]interface{}{
		"characterKey":  stringProp(),
		"characterName": stringProp(),
		"content":       stringProp(),
	}, "characterKey", "characterName", "content")

	return object(map[string]interface{}{
		"mode":             map[string]interface{}{"type": "string", "enum": []string{string(entity.ChatModeCouncil)}},
		"messages":         map[string]interface{}{"type": "array", "items": message, "minItems": 1},
		"suggested_topics": topicsProp(),
	}, "mode", "messages", "suggested_topics")
}

// DecisionSchema describes per-character analyses plus one final decision.
func DecisionSchema() map[string]interface{} {
	analysis := object(map[string]interface{}{
		"characterKey":  stringProp(),
		"characterName": stringProp(),
		"summary":       stringProp(),
	}, "characterKey", "characterName", "summary")

	decision := object(map[string]interface{}{
		"title":     stringProp(),
		"content":   stringProp(),
		"rationale": stringProp(),
	}, "title", "content", "rationale")

	return object(map[string]interface{}{
		"mode":             map[string]interface{}{"type": "string", "enum": []string{string(entity.ChatModeDecision)}},
		"analyses":         map[string]interface{}{"type": "array", "items": analysis, "minItems": 1},
		"final_decision":   decision,
		"suggested_topics": topicsProp(),
	}, "mode", "analyses", "final_decision", "suggested_topics")
}

// ResponseFormatFor returns the structured output request for a mode.
func ResponseFormatFor(mode entity.ChatMode) (llm.ResponseFormat, bool) {
	switch mode {
	case entity.ChatModeCouncil:
		return llm.ResponseFormat{Name: CouncilSchemaName, Schema: CouncilSchema(), Strict: true}, true
	case entity.ChatModeDecision:
		return llm.ResponseFormat{Name: DecisionSchemaName, Schema: DecisionSchema(), Strict: true}, true
	}
	return llm.ResponseFormat{}, false
}
