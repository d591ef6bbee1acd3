// Package schema holds the JSON schemas sent to the model and validates what comes back.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"companion-be/internal/entity"
)

const MaxSuggestedTopics = 3

var defaultTopics = map[entity.ChatMode][]string{
	entity.ChatModeCouncil: {
		"Como posso aplicar isso no meu dia a dia?",
		"O que a fé ensina sobre esse tema?",
		"Como posso orar sobre isso?",
	},
	entity.ChatModeDecision: {
		"Quais são os riscos dessa decisão?",
		"Como posso buscar direção em oração?",
		"Qual deve ser o meu primeiro passo prático?",
	},
}

// DefaultTopics returns a copy of the fallback suggestions for mode.
func DefaultTopics(mode entity.ChatMode) []string {
	topics := defaultTopics[mode]
	if topics == nil {
		topics = defaultTopics[entity.ChatModeCouncil]
	}
	return append([]string(nil), topics...)
}

// MalformedError reports an AI response that does not match the expected shape.
type MalformedError struct {
	Mode   entity.ChatMode
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed %s response: %s", e.Mode, e.Reason)
}

type CharacterItem struct {
	CharacterKey  string
	CharacterName string
	Text          string // content in Council mode, summary in Decision mode
}

type FinalDecision struct {
	Title     string
	Content   string
	Rationale string
}

// Response is the validated, mode-tagged AI output.
type Response struct {
	Mode            entity.ChatMode
	Items           []CharacterItem
	Decision        *FinalDecision // Decision mode only
	SuggestedTopics []string
	TopicsDefaulted bool
}

type rawItem struct {
	CharacterKey  *string `json:"characterKey"`
	CharacterName *string `json:"characterName"`
	Content       *string `json:"content"`
	Summary       *string `json:"summary"`
}

type rawDecision struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Rationale *string `json:"rationale"`
}

type rawResponse struct {
	Mode            *string         `json:"mode"`
	Messages        *[]rawItem      `json:"messages"`
	Analyses        *[]rawItem      `json:"analyses"`
	FinalDecision   *rawDecision    `json:"final_decision"`
	SuggestedTopics json.RawMessage `json:"suggested_topics"`
}

// Validate parses raw and checks it against the shape for mode.
// Missing or unusable suggested_topics are replaced with the mode default; anything else wrong is a *MalformedError.
func Validate(mode entity.ChatMode, raw string) (*Response, error) {
	malformed := func(format string, args ...interface{}) error {
		return &MalformedError{Mode: mode, Reason: fmt.Sprintf(format, args...)}
	}

	var parsed rawResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, malformed("invalid json: %v", err)
	}

	if parsed.Mode == nil {
		return nil, malformed("missing mode")
	}
	if entity.ChatMode(*parsed.Mode) != mode {
		return nil, malformed("mode %q does not match session mode", *parsed.Mode)
	}

	res := &Response{Mode: mode}

	switch mode {
	case entity.ChatModeCouncil:
		items, err := validateItems(parsed.Messages, "messages", "content", func(it rawItem) *string { return it.Content })
		if err != nil {
			return nil, malformed("%v", err)
		}
		res.Items = items
	case entity.ChatModeDecision:
		items, err := validateItems(parsed.Analyses, "analyses", "summary", func(it rawItem) *string { return it.Summary })
		if err != nil {
			return nil, malformed("%v", err)
		}
		res.Items = items

		decision, err := validateDecision(parsed.FinalDecision)
		if err != nil {
			return nil, malformed("%v", err)
		}
		res.Decision = decision
	default:
		return nil, malformed("unsupported mode")
	}

	res.SuggestedTopics, res.TopicsDefaulted = normalizeTopics(mode, parsed.SuggestedTopics)
	return res, nil
}

func validateItems(list *[]rawItem, field, textField string, text func(rawItem) *string) ([]CharacterItem, error) {
	if list == nil {
		return nil, fmt.Errorf("missing %s", field)
	}
	if len(*list) == 0 {
		return nil, fmt.Errorf("%s is empty", field)
	}

	items := make([]CharacterItem, 0, len(*list))
	for i, it := range *list {
		key, ok := nonBlank(it.CharacterKey)
		if !ok {
			return nil, fmt.Errorf("%s[%d].characterKey is required", field, i)
		}
		name, ok := nonBlank(it.CharacterName)
		if !ok {
			return nil, fmt.Errorf("%s[%d].characterName is required", field, i)
		}
		body, ok := nonBlank(text(it))
		if !ok {
			return nil, fmt.Errorf("%s[%d].%s is required", field, i, textField)
		}
		items = append(items, CharacterItem{CharacterKey: key, CharacterName: name, Text: body})
	}
	return items, nil
}

func validateDecision(d *rawDecision) (*FinalDecision, error) {
	if d == nil {
		return nil, fmt.Errorf("missing final_decision")
	}
	title, ok := nonBlank(d.Title)
	if !ok {
		return nil, fmt.Errorf("final_decision.title is required")
	}
	content, ok := nonBlank(d.Content)
	if !ok {
		return nil, fmt.Errorf("final_decision.content is required")
	}
	rationale, ok := nonBlank(d.Rationale)
	if !ok {
		return nil, fmt.Errorf("final_decision.rationale is required")
	}
	return &FinalDecision{Title: title, Content: content, Rationale: rationale}, nil
}

func normalizeTopics(mode entity.ChatMode, raw json.RawMessage) ([]string, bool) {
	var values []interface{}
	if len(raw) == 0 || json.Unmarshal(raw, &values) != nil {
		return DefaultTopics(mode), true
	}

	topics := make([]string, 0, MaxSuggestedTopics)
	for _, v := range values {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		topics = append(topics, strings.TrimSpace(s))
		if len(topics) == MaxSuggestedTopics {
			break
		}
	}
	if len(topics) == 0 {
		return DefaultTopics(mode), true
	}
	return topics, false
}

func nonBlank(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

// extractJSON strips a surrounding markdown code fence, which prompt-only models sometimes add.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
