package schema

import (
	"errors"
	"testing"

	"companion-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validCouncil = `{
  "mode": "COUNCIL",
  "messages": [
    {"characterKey": "pastor", "characterName": "Pastor João", "content": "A ansiedade é real."},
    {"characterKey": "psicologa", "characterName": "Dra. Ana", "content": "Respire fundo."}
  ],
  "suggested_topics": ["Oração", "Rotina", "Descanso"]
}`

const validDecision = `{
  "mode": "DECISION",
  "analyses": [
    {"characterKey": "pastor", "characterName": "Pastor João", "summary": "Considere sua família."}
  ],
  "final_decision": {"title": "Aceitar", "content": "Aceite a mudança.", "rationale": "Alinha com seus valores."},
  "suggested_topics": ["Riscos"]
}`

func TestValidateCouncil(t *testing.T) {
	res, err := Validate(entity.ChatModeCouncil, validCouncil)
	require.NoError(t, err)

	assert.Equal(t, entity.ChatModeCouncil, res.Mode)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "pastor", res.Items[0].CharacterKey)
	assert.Equal(t, "Respire fundo.", res.Items[1].Text)
	assert.Nil(t, res.Decision)
	assert.Equal(t, []string{"Oração", "Rotina", "Descanso"}, res.SuggestedTopics)
	assert.False(t, res.TopicsDefaulted)
}

func TestValidateDecision(t *testing.T) {
	res, err := Validate(entity.ChatModeDecision, validDecision)
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "Considere sua família.", res.Items[0].Text)
	require.NotNil(t, res.Decision)
	assert.Equal(t, "Aceitar", res.Decision.Title)
	assert.Equal(t, "Alinha com seus valores.", res.Decision.Rationale)
	assert.Equal(t, []string{"Riscos"}, res.SuggestedTopics)
}

func TestSuggestedTopicsDefaulting(t *testing.T) {
	base := `{"mode":"COUNCIL","messages":[{"characterKey":"a","characterName":"A","content":"x"}]`

	tests := []struct {
		name string
		tail string
		want []string
		def  bool
	}{
		{"absent", `}`, DefaultTopics(entity.ChatModeCouncil), true},
		{"null", `,"suggested_topics":null}`, DefaultTopics(entity.ChatModeCouncil), true},
		{"string instead of array", `,"suggested_topics":"ore mais"}`, DefaultTopics(entity.ChatModeCouncil), true},
		{"empty array", `,"suggested_topics":[]}`, DefaultTopics(entity.ChatModeCouncil), true},
		{"mixed items", `,"suggested_topics":[1,"  Fé  ",null,""]}`, []string{"Fé"}, false},
		{"too many", `,"suggested_topics":["a","b","c","d","e"]}`, []string{"a", "b", "c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate(entity.ChatModeCouncil, base+tt.tail)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.SuggestedTopics)
			assert.Equal(t, tt.def, res.TopicsDefaulted)
			assert.Len(t, res.SuggestedTopics, len(tt.want))
		})
	}
}

func TestDefaultTopicsHaveThreeItemsPerMode(t *testing.T) {
	assert.Len(t, DefaultTopics(entity.ChatModeCouncil), 3)
	assert.Len(t, DefaultTopics(entity.ChatModeDecision), 3)
	assert.NotEqual(t, DefaultTopics(entity.ChatModeCouncil), DefaultTopics(entity.ChatModeDecision))
}

func TestValidateRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		mode entity.ChatMode
		raw  string
	}{
		{"not json", entity.ChatModeCouncil, `Claro! Aqui está a resposta.`},
		{"missing mode", entity.ChatModeCouncil, `{"messages":[{"characterKey":"a","characterName":"A","content":"x"}]}`},
		{"wrong mode", entity.ChatModeCouncil, `{"mode":"DECISION","messages":[{"characterKey":"a","characterName":"A","content":"x"}]}`},
		{"missing messages", entity.ChatModeCouncil, `{"mode":"COUNCIL"}`},
		{"empty messages", entity.ChatModeCouncil, `{"mode":"COUNCIL","messages":[]}`},
		{"messages not array", entity.ChatModeCouncil, `{"mode":"COUNCIL","messages":"oi"}`},
		{"blank content", entity.ChatModeCouncil, `{"mode":"COUNCIL","messages":[{"characterKey":"a","characterName":"A","content":"  "}]}`},
		{"missing key", entity.ChatModeCouncil, `{"mode":"COUNCIL","messages":[{"characterName":"A","content":"x"}]}`},
		{"missing final decision", entity.ChatModeDecision, `{"mode":"DECISION","analyses":[{"characterKey":"a","characterName":"A","summary":"x"}]}`},
		{"decision without rationale", entity.ChatModeDecision, `{"mode":"DECISION","analyses":[{"characterKey":"a","characterName":"A","summary":"x"}],"final_decision":{"title":"t","content":"c"}}`},
		{"analysis without summary", entity.ChatModeDecision, `{"mode":"DECISION","analyses":[{"characterKey":"a","characterName":"A","content":"x"}],"final_decision":{"title":"t","content":"c","rationale":"r"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.mode, tt.raw)
			require.Error(t, err)
			var malformed *MalformedError
			assert.True(t, errors.As(err, &malformed))
		})
	}
}

func TestValidateStripsCodeFence(t *testing.T) {
	res, err := Validate(entity.ChatModeCouncil, "```json\n"+validCouncil+"\n```")
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestResponseFormatFor(t *testing.T) {
	format, ok := ResponseFormatFor(entity.ChatModeDecision)
	require.True(t, ok)
	assert.Equal(t, DecisionSchemaName, format.Name)
	assert.True(t, format.Strict)
	assert.Contains(t, format.Schema["required"], "final_decision")

	_, ok = ResponseFormatFor(entity.ChatMode("NARRATIVE"))
	assert.False(t, ok)
}
