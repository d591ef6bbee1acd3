package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"companion-be/internal/entity"
	"companion-be/pkg/llm"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func characters() []*entity.Character {
	return []*entity.Character{
		{Key: "pastor", Name: "Pastor João", BasePrompt: "You are a caring pastor.", StyleTags: []string{"acolhedor", "bíblico"}},
		{Key: "psicologa", Name: "Dra. Ana", BasePrompt: "You are a clinical psychologist."},
	}
}

func historyMessages() []*entity.ChatMessage {
	sessionId := uuid.New()
	now := time.UnixMilli(1700000000000)
	pastor := &entity.ChatParticipant{Character: characters()[0]}
	return []*entity.ChatMessage{
		entity.NewUserMessage(sessionId, "Estou ansioso", entity.ModerationResult{}, now),
		entity.NewCharacterMessage(sessionId, pastor, "Entregue a Deus.", entity.CharacterPayload{}, now.Add(time.Millisecond)),
		entity.NewSummaryMessage(sessionId, "Aceite o emprego", entity.SummaryPayload{}, now.Add(2*time.Millisecond)),
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder("pt-BR", 10)
	in := Input{Mode: entity.ChatModeCouncil, Characters: characters(), History: historyMessages(), UserInput: "oi"}

	first := b.Build(in)
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, b.Build(in)); diff != "" {
			t.Fatalf("prompt changed between calls (-first +again):\n%s", diff)
		}
	}
}

func TestBuildCouncilPrompt(t *testing.T) {
	b := NewBuilder("pt-BR", 10)
	out := b.Build(Input{Mode: entity.ChatModeCouncil, Characters: characters(), UserInput: "oi"})

	assert.Contains(t, out, "1. Pastor João (characterKey: pastor)")
	assert.Contains(t, out, "2. Dra. Ana (characterKey: psicologa)")
	assert.Contains(t, out, "Style: acolhedor, bíblico")
	assert.Contains(t, out, "100 to 300 words")
	assert.Contains(t, out, "Brazilian Portuguese (pt-BR)")
	assert.Contains(t, out, "Never give medical")
	assert.Contains(t, out, `"mode": "COUNCIL"`)
	assert.NotContains(t, out, "final_decision")
	assert.NotContains(t, out, "<conversation_history>")
	assert.NotContains(t, out, "<user_profile>")

	assert.Less(t, strings.Index(out, "Pastor João"), strings.Index(out, "Dra. Ana"))
}

func TestBuildDecisionPrompt(t *testing.T) {
	b := NewBuilder("pt-BR", 10)
	out := b.Build(Input{Mode: entity.ChatModeDecision, Characters: characters(), UserInput: "devo mudar?"})

	assert.Contains(t, out, "50 to 100 words")
	assert.Contains(t, out, `"final_decision"`)
	assert.Contains(t, out, `"mode": "DECISION"`)
}

func TestHistorySummaryOnlyInDecisionMode(t *testing.T) {
	b := NewBuilder("pt-BR", 10)

	council := b.Build(Input{Mode: entity.ChatModeCouncil, Characters: characters(), History: historyMessages()})
	assert.Contains(t, council, "USER: Estou ansioso\nPastor João: Entregue a Deus.\n</conversation_history>")
	assert.NotContains(t, council, "SUMMARY:")

	decision := b.Build(Input{Mode: entity.ChatModeDecision, Characters: characters(), History: historyMessages()})
	assert.Contains(t, decision, "SUMMARY: Aceite o emprego\n</conversation_history>")
}

func TestHistoryKeepsOnlyLastTurns(t *testing.T) {
	sessionId := uuid.New()
	var history []*entity.ChatMessage
	for i := 0; i < 15; i++ {
		history = append(history, entity.NewUserMessage(sessionId, fmt.Sprintf("msg-%02d", i), entity.ModerationResult{}, time.Now()))
	}

	out := NewBuilder("pt-BR", 10).Build(Input{Mode: entity.ChatModeCouncil, History: history})
	assert.NotContains(t, out, "msg-04")
	assert.Contains(t, out, "msg-05")
	assert.Contains(t, out, "msg-14")
	assert.Equal(t, 10, strings.Count(out, "USER: "))
}

func TestHistoryCountsWholeTurns(t *testing.T) {
	sessionId := uuid.New()
	at := time.UnixMilli(1700000000000)
	var advisors []*entity.ChatParticipant
	for i := 0; i < 6; i++ {
		advisors = append(advisors, &entity.ChatParticipant{Character: &entity.Character{Key: fmt.Sprintf("c%d", i), Name: fmt.Sprintf("Conselheiro %d", i)}})
	}

	var history []*entity.ChatMessage
	tick := func() time.Time { at = at.Add(time.Millisecond); return at }
	for turn := 0; turn < 12; turn++ {
		history = append(history, entity.NewUserMessage(sessionId, fmt.Sprintf("pergunta-%02d", turn), entity.ModerationResult{}, tick()))
		for _, p := range advisors {
			history = append(history, entity.NewCharacterMessage(sessionId, p, fmt.Sprintf("resposta-%02d", turn), entity.CharacterPayload{}, tick()))
		}
	}

	out := NewBuilder("pt-BR", 10).Build(Input{Mode: entity.ChatModeCouncil, History: history})
	assert.NotContains(t, out, "pergunta-01")
	assert.NotContains(t, out, "resposta-01")
	assert.Contains(t, out, "pergunta-02")
	assert.Equal(t, 10, strings.Count(out, "USER: "))
	assert.Equal(t, 60, strings.Count(out, "resposta-"))
}

func TestResponseStyleDirectives(t *testing.T) {
	b := NewBuilder("pt-BR", 10)

	tests := []struct {
		style entity.ResponseStyle
		want  string
	}{
		{entity.ResponseStyleTerse, "Be brief and direct"},
		{entity.ResponseStyleDetailed, "Be thorough"},
		{entity.ResponseStyleSpiritual, "Ground the answer in faith"},
		{entity.ResponseStylePractical, "actionable steps"},
		{"", "Be thorough"},
		{"poetic", "Be thorough"},
	}

	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			out := b.Build(Input{Mode: entity.ChatModeCouncil, User: &entity.UserContext{ResponseStyle: tt.style}})
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestUserProfileIncludesOnlyFilledFields(t *testing.T) {
	b := NewBuilder("pt-BR", 10)
	user := &entity.UserContext{
		Name: "Maria",
		Profile: &entity.UserQuestionnaire{
			AgeRange:      "25-34",
			TopValues:     []string{"família", " ", "fé"},
			MainChallenge: "",
		},
	}

	out := b.Build(Input{Mode: entity.ChatModeCouncil, User: user})
	want := "<user_profile>\n- Name: Maria\n- Age range: 25-34\n- Top values: família, fé\n</user_profile>"
	assert.Contains(t, out, want)
	assert.NotContains(t, out, "Main challenge")
}

func TestMessages(t *testing.T) {
	b := NewBuilder("pt-BR", 10)
	in := Input{Mode: entity.ChatModeCouncil, Characters: characters(), UserInput: "Estou ansioso com o trabalho"}

	got := b.Messages(in)
	want := []llm.Message{
		{Role: llm.RoleSystem, Content: b.Build(in)},
		{Role: llm.RoleUser, Content: "Estou ansioso com o trabalho"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
	}
}
