package orchestrator

import (
	"context"

	"companion-be/internal/entity"
	"companion-be/pkg/council/stream"

	"github.com/google/uuid"
)

func (o *Orchestrator) runDecision(ctx context.Context, tc *turnContext, turn Turn, sink stream.Sink) (*Result, error) {
	res, err := o.complete(ctx, tc, turn)
	if err != nil {
		return nil, err
	}
	items, err := match(entity.ChatModeDecision, tc.participants, res.Items)
	if err != nil {
		return nil, err
	}

	sessionId := tc.session.Id
	clk := o.newClock(tc.latest)
	rows := make([]*entity.ChatMessage, 0, len(items)+2)
	for i, it := range items {
		p := tc.participants[i]
		rows = append(rows, entity.NewCharacterMessage(sessionId, p, it.Text, entity.CharacterPayload{
			Mode:           entity.ChatModeDecision,
			Round:          entity.CharacterRoundAnalysis,
			CharacterOrder: p.OrderIndex,
		}, clk.tick()))
	}
	summary := entity.NewSummaryMessage(sessionId, res.Decision.Content, entity.SummaryPayload{
		Title:     res.Decision.Title,
		Rationale: res.Decision.Rationale,
	}, clk.tick())
	rows = append(rows, summary)
	rows = append(rows, entity.NewSystemMessage(sessionId, entity.SystemPayload{
		Mode:            entity.ChatModeDecision,
		SuggestedTopics: res.SuggestedTopics,
	}, clk.tick()))

	if err := o.persist(ctx, sessionId, rows); err != nil {
		return nil, err
	}

	result := &Result{
		Mode:         entity.ChatModeDecision,
		Participants: participantInfos(tc.participants),
		Decision: &Decision{
			MessageId: summary.Id,
			Title:     res.Decision.Title,
			Content:   summary.Content,
			Rationale: res.Decision.Rationale,
			CreatedAt: summary.CreatedAt,
		},
		SuggestedTopics: res.SuggestedTopics,
		MessageIds:      make([]uuid.UUID, 0, len(rows)),
	}
	for i := range items {
		result.Analyses = append(result.Analyses, replyFrom(rows[i], tc.participants[i]))
	}
	for _, row := range rows {
		result.MessageIds = append(result.MessageIds, row.Id)
	}

	e := &emitter{sink: sink, logger: o.logger, sessionId: sessionId}
	e.emit(stream.EventDecisionStart, StartData{SessionId: sessionId, Mode: result.Mode, Participants: result.Participants})
	for _, analysis := range result.Analyses {
		e.emit(stream.EventCharacterAnalysis, analysis)
	}
	e.emit(stream.EventFinalDecision, result.Decision)
	e.emit(stream.EventDecisionComplete, CompleteData{
		SessionId:       sessionId,
		SuggestedTopics: result.SuggestedTopics,
		MessageIds:      result.MessageIds,
	})

	return result, nil
}
