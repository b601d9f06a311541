package agent

import (
	"context"
	"fmt"

	"github.com/amadis/amblue/internal/agent/react"
	"github.com/amadis/amblue/internal/conversation"
	"github.com/amadis/amblue/internal/log"
)

// routingHistoryLimit bounds how much transcript the router sees.
const routingHistoryLimit = 10

// ConversationStore is the transcript persistence the orchestrator needs.
// Implemented by conversation.Store.
type ConversationStore interface {
	Ensure(ctx context.Context, conversationID, userID string) error
	AddMessage(ctx context.Context, conversationID, role, content string) (int64, error)
	Messages(ctx context.Context, conversationID string) ([]conversation.Message, error)
}

// Orchestrator is the single entry point for a user turn: it bootstraps the
// conversation, routes the question to one agent, runs that agent's loop and
// relays its events while recording the transcript.
type Orchestrator struct {
	router        Router
	sqlAgent      *Agent
	docsAgent     *Agent
	conversations ConversationStore
	logger        log.Logger
}

// NewOrchestrator wires the supervisor around the two specialized agents.
func NewOrchestrator(router Router, sqlAgent, docsAgent *Agent, conversations ConversationStore, logger log.Logger) (*Orchestrator, error) {
	if router == nil {
		return nil, fmt.Errorf("router is required")
	}
	if sqlAgent == nil || docsAgent == nil {
		return nil, fmt.Errorf("both agents are required")
	}
	if conversations == nil {
		return nil, fmt.Errorf("conversation store is required")
	}
	return &Orchestrator{
		router:        router,
		sqlAgent:      sqlAgent,
		docsAgent:     docsAgent,
		conversations: conversations,
		logger:        logger,
	}, nil
}

// ProcessTurn handles one user question. Events are delivered on the returned
// channel in production order; the channel closes after the terminal frame
// (agent_message_complete or error_message). Cancelling ctx stops further
// model calls and tool dispatch without corrupting checkpoints.
func (o *Orchestrator) ProcessTurn(ctx context.Context, userID, conversationID, question string) <-chan react.Event {
	events := make(chan react.Event, 16)

	go func() {
		defer close(events)

		emit := func(ev react.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		if err := o.runTurn(ctx, userID, conversationID, question, emit); err != nil {
			o.logger.Error("turn failed", "conversation_id", conversationID, "error", err)
			emit(react.ErrorEvent("I apologize, but I encountered an error while processing your question."))
		}
	}()

	return events
}

func (o *Orchestrator) runTurn(ctx context.Context, userID, conversationID, question string, emit func(react.Event)) error {
	if err := o.conversations.Ensure(ctx, conversationID, userID); err != nil {
		return err
	}

	history, err := o.routingHistory(ctx, conversationID)
	if err != nil {
		return err
	}

	decision, err := o.router.Route(ctx, question, history)
	if err != nil {
		return fmt.Errorf("routing: %w", err)
	}

	if _, err := o.conversations.AddMessage(ctx, conversationID, string(react.RoleHuman), question); err != nil {
		return err
	}

	ag := o.docsAgent
	if decision == RouteSQL {
		ag = o.sqlAgent
	}
	o.logger.Debug("turn routed", "conversation_id", conversationID, "agent", ag.Name)

	final, err := ag.Engine.Run(ctx, conversationID, react.NewHumanMessage(question), func(ev react.Event) {
		emit(ev)
		if ev.Type == react.EventToolMessage {
			if _, err := o.conversations.AddMessage(ctx, conversationID, string(react.RoleTool), ev.Content); err != nil {
				o.logger.Warn("recording tool message failed", "conversation_id", conversationID, "error", err)
			}
		}
	})
	if err != nil {
		return err
	}

	if _, err := o.conversations.AddMessage(ctx, conversationID, string(final.Role), final.Content); err != nil {
		o.logger.Warn("recording answer failed", "conversation_id", conversationID, "error", err)
	}
	return nil
}

// routingHistory returns the tail of the stored transcript, tool results
// excluded, as loop messages for the router.
func (o *Orchestrator) routingHistory(ctx context.Context, conversationID string) ([]react.Message, error) {
	stored, err := o.conversations.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	var history []react.Message
	for _, m := range stored {
		if m.Role == string(react.RoleTool) {
			continue
		}
		history = append(history, react.Message{Role: react.Role(m.Role), Content: m.Content})
	}
	if len(history) > routingHistoryLimit {
		history = history[len(history)-routingHistoryLimit:]
	}
	return history, nil
}
