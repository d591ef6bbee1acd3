package orchestrator

import (
	"context"

	"companion-be/internal/entity"
	"companion-be/pkg/council/stream"

	"github.com/google/uuid"
)

func (o *Orchestrator) runCouncil(ctx context.Context, tc *turnContext, turn Turn, sink stream.Sink) (*Result, error) {
	res, err := o.complete(ctx, tc, turn)
	if err != nil {
		return nil, err
	}
	items, err := match(entity.ChatModeCouncil, tc.participants, res.Items)
	if err != nil {
		return nil, err
	}

	sessionId := tc.session.Id
	clk := o.newClock(tc.latest)
	rows := make([]*entity.ChatMessage, 0, len(items)+1)
	for i, it := range items {
		p := tc.participants[i]
		rows = append(rows, entity.NewCharacterMessage(sessionId, p, it.Text, entity.CharacterPayload{
			Mode:           entity.ChatModeCouncil,
			Round:          entity.CharacterRoundResponse,
			CharacterOrder: p.OrderIndex,
		}, clk.tick()))
	}
	rows = append(rows, entity.NewSystemMessage(sessionId, entity.SystemPayload{
		Mode:            entity.ChatModeCouncil,
		SuggestedTopics: res.SuggestedTopics,
	}, clk.tick()))

	if err := o.persist(ctx, sessionId, rows); err != nil {
		return nil, err
	}

	result := &Result{
		Mode:            entity.ChatModeCouncil,
		Participants:    participantInfos(tc.participants),
		SuggestedTopics: res.SuggestedTopics,
		MessageIds:      make([]uuid.UUID, 0, len(rows)),
	}
	for i := range items {
		result.Responses = append(result.Responses, replyFrom(rows[i], tc.participants[i]))
	}
	for _, row := range rows {
		result.MessageIds = append(result.MessageIds, row.Id)
	}

	e := &emitter{sink: sink, logger: o.logger, sessionId: sessionId}
	e.emit(stream.EventCouncilStart, StartData{SessionId: sessionId, Mode: result.Mode, Participants: result.Participants})
	for _, reply := range result.Responses {
		e.emit(stream.EventCharacterResponse, reply)
	}
	e.emit(stream.EventCouncilComplete, CompleteData{
		SessionId:       sessionId,
		SuggestedTopics: result.SuggestedTopics,
		MessageIds:      result.MessageIds,
	})

	return result, nil
}
