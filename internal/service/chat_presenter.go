package service

import (
	"companion-be/internal/dto"
	"companion-be/internal/entity"
	"companion-be/pkg/council/orchestrator"

	"github.com/google/uuid"
)

func toSessionResponse(s *entity.ChatSession) dto.ChatSessionResponse {
	res := dto.ChatSessionResponse{
		Id:        s.Id,
		Mode:      string(s.Mode),
		Title:     s.Title,
		IsClosed:  s.IsClosed,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	for _, p := range s.Participants {
		if p.Character == nil {
			continue
		}
		res.Participants = append(res.Participants, dto.ChatParticipantResponse{
			CharacterKey:  p.Character.Key,
			CharacterName: p.Character.Name,
			AvatarURL:     optional(p.Character.AvatarURL),
			OrderIndex:    p.OrderIndex,
		})
	}
	return res
}

func toMessageResponse(m *entity.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		Id:         m.Id,
		Role:       string(m.Role),
		AuthorKey:  m.AuthorKey,
		AuthorName: m.AuthorName,
		Content:    m.Content,
		Metadata:   messageMetadata(m.Payload),
		CreatedAt:  m.CreatedAt,
	}
}

func toMessageResponses(messages []*entity.ChatMessage) []dto.ChatMessageResponse {
	res := make([]dto.ChatMessageResponse, 0, len(messages))
	for _, m := range messages {
		res = append(res, toMessageResponse(m))
	}
	return res
}

func messageMetadata(payload entity.MessagePayload) map[string]interface{} {
	switch p := payload.(type) {
	case entity.UserPayload:
		if !p.Moderation.Checked && !p.Moderation.Flagged {
			return nil
		}
		return map[string]interface{}{"moderation": p.Moderation}
	case entity.CharacterPayload:
		return map[string]interface{}{
			"mode":           p.Mode,
			"round":          p.Round,
			"characterOrder": p.CharacterOrder,
		}
	case entity.SummaryPayload:
		return map[string]interface{}{
			"title":     p.Title,
			"rationale": p.Rationale,
		}
	case entity.SystemPayload:
		return map[string]interface{}{
			"mode":            p.Mode,
			"suggestedTopics": p.SuggestedTopics,
		}
	}
	return nil
}

func replyResponse(r orchestrator.CharacterReply, mode entity.ChatMode, round string) dto.ChatMessageResponse {
	key, name := r.CharacterKey, r.CharacterName
	return dto.ChatMessageResponse{
		Id:         r.MessageId,
		Role:       string(entity.MessageRoleCharacter),
		AuthorKey:  &key,
		AuthorName: &name,
		Content:    r.Content,
		Metadata: map[string]interface{}{
			"mode":           mode,
			"round":          round,
			"characterOrder": r.OrderIndex,
		},
		CreatedAt: r.CreatedAt,
	}
}

func toSendResponse(sessionId uuid.UUID, userMessage *entity.ChatMessage, result *orchestrator.Result) *dto.SendChatMessageResponse {
	res := &dto.SendChatMessageResponse{
		SessionId:       sessionId,
		Mode:            string(result.Mode),
		UserMessage:     toMessageResponse(userMessage),
		SuggestedTopics: result.SuggestedTopics,
	}

	switch result.Mode {
	case entity.ChatModeDecision:
		for _, a := range result.Analyses {
			res.Messages = append(res.Messages, replyResponse(a, result.Mode, entity.CharacterRoundAnalysis))
		}
		if d := result.Decision; d != nil {
			key := entity.SummaryAuthorKey
			res.Messages = append(res.Messages, dto.ChatMessageResponse{
				Id:        d.MessageId,
				Role:      string(entity.MessageRoleSummary),
				AuthorKey: &key,
				Content:   d.Content,
				Metadata: map[string]interface{}{
					"title":     d.Title,
					"rationale": d.Rationale,
				},
				CreatedAt: d.CreatedAt,
			})
			res.FinalDecision = &dto.FinalDecisionResponse{
				MessageId: d.MessageId,
				Title:     d.Title,
				Content:   d.Content,
				Rationale: d.Rationale,
			}
		}
	default:
		for _, r := range result.Responses {
			res.Messages = append(res.Messages, replyResponse(r, result.Mode, entity.CharacterRoundResponse))
		}
	}
	return res
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
