package prompt

import (
	"fmt"
	"strings"

	"companion-be/internal/entity"
	"companion-be/pkg/llm"
)

// Builder renders the system prompt for a Council or Decision turn. Output depends only on its input.
type Builder struct {
	locale       string
	historyTurns int
}

func NewBuilder(locale string, historyTurns int) *Builder {
	if locale == "" {
		locale = "pt-BR"
	}
	if historyTurns <= 0 || historyTurns > 10 {
		historyTurns = 10
	}
	return &Builder{locale: locale, historyTurns: historyTurns}
}

type Input struct {
	Mode       entity.ChatMode
	Characters []*entity.Character // in participant order
	History    []*entity.ChatMessage
	UserInput  string
	User       *entity.UserContext
}

// Messages returns the system prompt followed by the raw user input.
func (b *Builder) Messages(in Input) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: b.Build(in)},
		{Role: llm.RoleUser, Content: in.UserInput},
	}
}

func (b *Builder) Build(in Input) string {
	var prompt strings.Builder

	b.writeTask(&prompt, in)
	b.writeCharacters(&prompt, in.Characters)
	b.writeRules(&prompt)
	b.writeResponseStyle(&prompt, in.User)
	b.writeUserProfile(&prompt, in.User)
	b.writeHistory(&prompt, in.Mode, in.History)
	b.writeOutputFormat(&prompt, in.Mode)

	return prompt.String()
}

func (b *Builder) writeTask(prompt *strings.Builder, in Input) {
	prompt.WriteString("<task>\n")
	switch in.Mode {
	case entity.ChatModeDecision:
		prompt.WriteString("You are a council of spiritual and personal advisors helping the user make a decision.\n")
		prompt.WriteString("Each advisor below gives a short analysis (50 to 100 words) of the user's situation from their own perspective, in the order listed.\n")
		prompt.WriteString("Then the council agrees on ONE final decision with a title, the recommended course of action and the rationale behind it.\n")
	default:
		prompt.WriteString("You are a council of spiritual and personal advisors talking with the user.\n")
		prompt.WriteString("Each advisor below answers the user's message once, in the order listed, with 100 to 300 words.\n")
		prompt.WriteString("The answers must complement each other: do not repeat what a previous advisor already said.\n")
	}
	prompt.WriteString("Finish with up to 3 short suggested topics the user could explore next.\n")
	prompt.WriteString("</task>\n\n")
}

func (b *Builder) writeCharacters(prompt *strings.Builder, characters []*entity.Character) {
	prompt.WriteString("<advisors>\n")
	for i, c := range characters {
		fmt.Fprintf(prompt, "%d. %s (characterKey: %s)\n", i+1, c.Name, c.Key)
		prompt.WriteString(strings.TrimSpace(c.BasePrompt))
		prompt.WriteString("\n")
		if len(c.StyleTags) > 0 {
			prompt.WriteString("Style: ")
			prompt.WriteString(strings.Join(c.StyleTags, ", "))
			prompt.WriteString("\n")
		}
		prompt.WriteString("\n")
	}
	prompt.WriteString("</advisors>\n\n")
}

func (b *Builder) writeRules(prompt *strings.Builder) {
	prompt.WriteString("<rules>\n")
	fmt.Fprintf(prompt, "1. Always reply in %s, whatever language the user writes in\n", localeName(b.locale))
	prompt.WriteString("2. Be warm, empathetic and respectful; never judge the user\n")
	prompt.WriteString("3. Never give medical, psychiatric or psychological diagnoses and never prescribe medication or treatment\n")
	prompt.WriteString("4. If the user mentions self-harm, abuse, a crisis or persistent suffering, gently recommend professional help and local emergency services\n")
	prompt.WriteString("5. Stay in character and speak only for the advisors listed above\n")
	prompt.WriteString("</rules>\n\n")
}

var styleDirectives = map[entity.ResponseStyle]string{
	entity.ResponseStyleTerse:     "Be brief and direct. Prefer short sentences and go straight to the point.",
	entity.ResponseStyleDetailed:  "Be thorough. Explain your reasoning and give concrete examples.",
	entity.ResponseStyleSpiritual: "Ground the answer in faith: reference scripture, prayer and spiritual practices where appropriate.",
	entity.ResponseStylePractical: "Focus on actionable steps the user can take this week.",
}

func (b *Builder) writeResponseStyle(prompt *strings.Builder, user *entity.UserContext) {
	style := entity.ResponseStyleDetailed
	if user != nil && user.ResponseStyle.IsValid() {
		style = user.ResponseStyle
	}

	prompt.WriteString("<response_style>\n")
	prompt.WriteString(styleDirectives[style])
	prompt.WriteString("\n</response_style>\n\n")
}

func (b *Builder) writeUserProfile(prompt *strings.Builder, user *entity.UserContext) {
	if user == nil {
		return
	}

	var lines []string
	if user.Name != "" {
		lines = append(lines, "Name: "+user.Name)
	}
	if p := user.Profile; p != nil {
		lines = appendField(lines, "Age range", p.AgeRange)
		lines = appendField(lines, "Current situation", p.Situation)
		lines = appendList(lines, "Top values", p.TopValues)
		lines = appendField(lines, "Main challenge", p.MainChallenge)
		lines = appendList(lines, "Motivations", p.Motivations)
		lines = appendList(lines, "Self-knowledge goals", p.SelfKnowledgeGoals)
	}
	if len(lines) == 0 {
		return
	}

	prompt.WriteString("<user_profile>\n")
	for _, line := range lines {
		prompt.WriteString("- ")
		prompt.WriteString(line)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</user_profile>\n\n")
}

// writeHistory renders the last historyTurns turns. A turn opens at a USER
// message and carries every reply up to the next one.
func (b *Builder) writeHistory(prompt *strings.Builder, mode entity.ChatMode, history []*entity.ChatMessage) {
	var lines []string
	var turnStarts []int
	for _, msg := range history {
		switch msg.Role {
		case entity.MessageRoleUser:
			turnStarts = append(turnStarts, len(lines))
			lines = append(lines, "USER: "+msg.Content)
		case entity.MessageRoleCharacter:
			name := "ADVISOR"
			if msg.AuthorName != nil && *msg.AuthorName != "" {
				name = *msg.AuthorName
			}
			lines = append(lines, name+": "+msg.Content)
		case entity.MessageRoleSummary:
			if mode == entity.ChatModeDecision {
				lines = append(lines, "SUMMARY: "+msg.Content)
			}
		}
	}
	if len(lines) == 0 {
		return
	}
	if len(turnStarts) > b.historyTurns {
		lines = lines[turnStarts[len(turnStarts)-b.historyTurns]:]
	}

	prompt.WriteString("<conversation_history>\n")
	for _, line := range lines {
		prompt.WriteString(line)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</conversation_history>\n\n")
}

const councilShape = `{
  "mode": "COUNCIL",
  "messages": [
    {"characterKey": "<advisor key>", "characterName": "<advisor name>", "content": "<answer>"}
  ],
  "suggested_topics": ["<topic>", "<topic>", "<topic>"]
}`

const decisionShape = `{
  "mode": "DECISION",
  "analyses": [
    {"characterKey": "<advisor key>", "characterName": "<advisor name>", "summary": "<analysis>"}
  ],
  "final_decision": {"title": "<short title>", "content": "<recommended decision>", "rationale": "<why>"},
  "suggested_topics": ["<topic>", "<topic>", "<topic>"]
}`

func (b *Builder) writeOutputFormat(prompt *strings.Builder, mode entity.ChatMode) {
	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Return only JSON with exactly this shape, one entry per advisor in the order listed:\n")
	if mode == entity.ChatModeDecision {
		prompt.WriteString(decisionShape)
	} else {
		prompt.WriteString(councilShape)
	}
	prompt.WriteString("\n</output_format>\n")
}

func appendField(lines []string, label, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return lines
	}
	return append(lines, label+": "+value)
}

func appendList(lines []string, label string, values []string) []string {
	var kept []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return lines
	}
	return append(lines, label+": "+strings.Join(kept, ", "))
}

func localeName(locale string) string {
	switch strings.ToLower(locale) {
	case "pt-br":
		return "Brazilian Portuguese (pt-BR)"
	case "pt-pt":
		return "European Portuguese (pt-PT)"
	case "es", "es-es":
		return "Spanish (" + locale + ")"
	case "en", "en-us":
		return "English (" + locale + ")"
	}
	return locale
}
