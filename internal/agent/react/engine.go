package react

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amadis/amblue/internal/log"
)

// StepLimitReply is the fixed answer returned when a turn would exceed its
// step budget mid-reasoning.
const StepLimitReply = "Sorry, need more steps to process this request."

// DefaultToolTimeout bounds a single tool execution.
const DefaultToolTimeout = 60 * time.Second

// DefaultModelTimeout bounds a single model call, streaming included.
const DefaultModelTimeout = 2 * time.Minute

var (
	// ErrNoModel indicates the engine was built without a model caller.
	ErrNoModel = errors.New("model caller is required")

	// ErrNoCheckpointer indicates the engine was built without a checkpointer.
	ErrNoCheckpointer = errors.New("checkpointer is required")
)

// Config assembles an Engine.
type Config struct {
	// Name identifies the agent; it namespaces checkpoints.
	Name string

	// System is the agent's system prompt.
	System string

	Model   ModelCaller
	Tools   Toolbox
	Saver   Checkpointer
	Logger  log.Logger

	// MaxSteps bounds model calls per turn. Zero means the default of 25.
	MaxSteps int

	// HistoryWindow bounds the messages sent to the model per step.
	// Zero means the default of 25.
	HistoryWindow int

	// ToolTimeout bounds a single tool execution. Zero means
	// DefaultToolTimeout.
	ToolTimeout time.Duration

	// ModelTimeout bounds a single model call. Zero means
	// DefaultModelTimeout.
	ModelTimeout time.Duration
}

// Engine runs the reasoning loop for one agent.
type Engine struct {
	name          string
	system        string
	model         ModelCaller
	tools         Toolbox
	saver         Checkpointer
	logger        log.Logger
	maxSteps      int
	historyWindow int
	toolTimeout   time.Duration
	modelTimeout  time.Duration
}

// New builds an Engine from cfg, applying defaults for unset limits.
func New(cfg Config) (*Engine, error) {
	if cfg.Model == nil {
		return nil, ErrNoModel
	}
	if cfg.Saver == nil {
		return nil, ErrNoCheckpointer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 25
	}
	window := cfg.HistoryWindow
	if window <= 0 {
		window = 25
	}
	toolTimeout := cfg.ToolTimeout
	if toolTimeout <= 0 {
		toolTimeout = DefaultToolTimeout
	}
	modelTimeout := cfg.ModelTimeout
	if modelTimeout <= 0 {
		modelTimeout = DefaultModelTimeout
	}

	tools := cfg.Tools
	if tools == nil {
		tools = emptyToolbox{}
	}

	return &Engine{
		name:          cfg.Name,
		system:        cfg.System,
		model:         cfg.Model,
		tools:         tools,
		saver:         cfg.Saver,
		logger:        logger.With("component", "react", "agent", cfg.Name),
		maxSteps:      maxSteps,
		historyWindow: window,
		toolTimeout:   toolTimeout,
		modelTimeout:  modelTimeout,
	}, nil
}

// Name returns the agent name used for checkpoint namespacing.
func (e *Engine) Name() string { return e.name }

// Run executes one turn: load the checkpoint, fold in the input message, and
// iterate model calls and tool dispatch until a terminal condition.
//
// emit, when non-nil, receives stream frames in order: text deltas during
// model calls, tool_message frames after each tool round, and exactly one
// agent_message_complete at the end of a successful turn. Run never emits
// error_message itself; a caller translating the returned error owns the
// terminal failure frame.
//
// The returned message is the final answer: a plain AI message, the result of
// a terminal tool, or the fixed step-limit reply.
func (e *Engine) Run(ctx context.Context, conversationID string, input Message, emit func(Event)) (Message, error) {
	if emit == nil {
		emit = func(Event) {}
	}

	snap, err := e.saver.Get(ctx, conversationID, e.name)
	if err != nil && !errors.Is(err, ErrNoCheckpoint) {
		return Message{}, fmt.Errorf("loading checkpoint: %w", err)
	}

	state := State{Messages: snap.Messages}
	state.Merge(input)

	baseStep := snap.Step
	stepsUsed := 0

	for {
		window := TruncateHistory(state.Messages, e.historyWindow)
		req := ModelRequest{
			System:   e.system,
			Messages: window,
			Tools:    e.tools.Definitions(),
		}

		mctx, cancel := context.WithTimeout(ctx, e.modelTimeout)
		reply, err := e.model.Generate(mctx, req, func(delta string) {
			emit(DeltaEvent(delta))
		})
		cancel()
		if err != nil {
			return Message{}, fmt.Errorf("model call: %w", err)
		}
		stepsUsed++

		remaining := e.maxSteps - stepsUsed
		hasToolCalls := len(reply.ToolCalls) > 0

		if e.outOfSteps(remaining, reply.ToolCalls) {
			e.logger.Warn("step budget exhausted mid-reasoning",
				"conversation_id", conversationID,
				"steps_used", stepsUsed)

			// Replace the reply in place, keeping its id so the merge
			// reducer overwrites rather than appends on resume.
			apology := Message{ID: reply.ID, Role: RoleAI, Content: StepLimitReply}
			state.Merge(apology)
			if err := e.checkpoint(ctx, conversationID, state, baseStep+int64(stepsUsed)); err != nil {
				return Message{}, err
			}
			emit(DeltaEvent(StepLimitReply))
			emit(CompleteEvent())
			return apology, nil
		}

		state.Merge(reply)

		if !hasToolCalls {
			if err := e.checkpoint(ctx, conversationID, state, baseStep+int64(stepsUsed)); err != nil {
				return Message{}, err
			}
			emit(CompleteEvent())
			return reply, nil
		}

		results, err := e.dispatch(ctx, reply.ToolCalls)
		if err != nil {
			return Message{}, err
		}
		for _, r := range results {
			emit(ToolMessageEvent(r))
		}
		state.Merge(results...)

		if err := e.checkpoint(ctx, conversationID, state, baseStep+int64(stepsUsed)); err != nil {
			return Message{}, err
		}

		if final, ok := e.terminalToolResult(state.Messages); ok {
			emit(CompleteEvent())
			return final, nil
		}
	}
}

// outOfSteps decides whether the turn must stop instead of dispatching the
// requested tool calls. A dispatched round needs at least one further model
// call to read its results, so tool calls are refused when fewer than two
// steps remain.
func (e *Engine) outOfSteps(remaining int, calls []ToolCall) bool {
	hasToolCalls := len(calls) > 0
	isLastStep := remaining == 0

	allReturnDirect := hasToolCalls
	for _, c := range calls {
		if !e.tools.ReturnDirect(c.Name) {
			allReturnDirect = false
			break
		}
	}

	switch {
	case isLastStep && hasToolCalls:
		return true
	case remaining < 1 && allReturnDirect:
		return true
	case remaining < 2 && hasToolCalls:
		return true
	default:
		return false
	}
}

// dispatch runs the requested tool calls in parallel and returns their
// results in request order. Tool failures are recovered into tool-result
// messages; only context cancellation aborts the round.
func (e *Engine) dispatch(ctx context.Context, calls []ToolCall) ([]Message, error) {
	results := make([]Message, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(gctx, e.toolTimeout)
			defer cancel()

			out, err := e.tools.Execute(tctx, call.Name, call.Args)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn("tool execution failed",
					"tool", call.Name,
					"tool_call_id", call.ID,
					"error", err)
				out = fmt.Sprintf("Error: %s", err)
			}
			results[i] = NewToolMessage(call.ID, call.Name, out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dispatching tools: %w", err)
	}
	return results, nil
}

// terminalToolResult scans the trailing tool-result run for a tool that ends
// the turn. When found, the last result of the run is the final answer.
func (e *Engine) terminalToolResult(messages []Message) (Message, bool) {
	direct := false
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != RoleTool {
			break
		}
		if e.tools.ReturnDirect(messages[i].ToolName) {
			direct = true
		}
	}
	if !direct {
		return Message{}, false
	}
	return messages[len(messages)-1], true
}

func (e *Engine) checkpoint(ctx context.Context, conversationID string, state State, step int64) error {
	snap := Snapshot{Messages: state.Messages, Step: step}
	if err := e.saver.Put(ctx, conversationID, e.name, snap); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// emptyToolbox is used when an agent has no tools.
type emptyToolbox struct{}

func (emptyToolbox) Definitions() []ToolDefinition { return nil }

func (emptyToolbox) Execute(context.Context, string, map[string]any) (string, error) {
	return "", errors.New("no tools registered")
}

func (emptyToolbox) ReturnDirect(string) bool { return false }
