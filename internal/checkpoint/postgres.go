// Package checkpoint persists agent conversation snapshots so turns can
// resume across requests and restarts.
//
// The Postgres saver owns its own connection pool with an explicit Open
// lifecycle: construction never touches the network, and using a saver
// before Open returns ErrNotOpen.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amadis/amblue/internal/agent/react"
	"github.com/amadis/amblue/internal/log"
)

// ErrNotOpen is returned when a saver is used before Open succeeds.
var ErrNotOpen = errors.New("checkpoint saver is not open")

// DefaultPoolSize is the connection pool size when none is configured.
const DefaultPoolSize = 20

// queryTimeout bounds a single checkpoint read or write, connection
// acquisition included.
const queryTimeout = 5 * time.Second

// Saver stores snapshots in the agent_checkpoints table.
// Safe for concurrent use after Open.
type Saver struct {
	connString string
	poolSize   int32
	logger     log.Logger

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithPoolSize overrides the connection pool size.
func WithPoolSize(n int) SaverOption {
	return func(s *Saver) {
		if n > 0 {
			s.poolSize = int32(n)
		}
	}
}

// WithLogger sets the saver's logger.
func WithLogger(logger log.Logger) SaverOption {
	return func(s *Saver) { s.logger = logger }
}

// NewSaver creates a saver for the given pgx connection string. No
// connection is made until Open.
func NewSaver(connString string, opts ...SaverOption) *Saver {
	s := &Saver{
		connString: connString,
		poolSize:   DefaultPoolSize,
		logger:     log.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "checkpoint")
	return s
}

// Open creates and pings the connection pool. Calling Open on an already
// open saver is a no-op.
func (s *Saver) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return nil
	}

	poolCfg, err := pgxpool.ParseConfig(s.connString)
	if err != nil {
		return fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = s.poolSize

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating checkpoint pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging checkpoint database: %w", err)
	}

	s.pool = pool
	s.logger.Debug("checkpoint pool opened", "max_conns", s.poolSize)
	return nil
}

// Close releases the connection pool. The saver can be reopened.
func (s *Saver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

func (s *Saver) getPool() (*pgxpool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pool == nil {
		return nil, ErrNotOpen
	}
	return s.pool, nil
}

// Get loads the snapshot for a conversation and agent. Returns
// react.ErrNoCheckpoint when none has been stored.
func (s *Saver) Get(ctx context.Context, conversationID, agent string) (react.Snapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return react.Snapshot{}, err
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		stateJSON []byte
		step      int64
	)
	err = pool.QueryRow(qctx, `
		SELECT state, step
		FROM agent_checkpoints
		WHERE conversation_id = $1 AND agent = $2`,
		conversationID, agent).Scan(&stateJSON, &step)
	if errors.Is(err, pgx.ErrNoRows) {
		return react.Snapshot{}, react.ErrNoCheckpoint
	}
	if err != nil {
		return react.Snapshot{}, fmt.Errorf("loading checkpoint: %w", err)
	}

	var messages []react.Message
	if err := json.Unmarshal(stateJSON, &messages); err != nil {
		return react.Snapshot{}, fmt.Errorf("decoding checkpoint state: %w", err)
	}

	return react.Snapshot{Messages: messages, Step: step}, nil
}

// Put stores a snapshot, replacing any previous one for the same
// conversation and agent.
func (s *Saver) Put(ctx context.Context, conversationID, agent string, snap react.Snapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	stateJSON, err := json.Marshal(snap.Messages)
	if err != nil {
		return fmt.Errorf("encoding checkpoint state: %w", err)
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = pool.Exec(qctx, `
		INSERT INTO agent_checkpoints (conversation_id, agent, state, step, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (conversation_id, agent) DO UPDATE
		SET state = EXCLUDED.state,
		    step = EXCLUDED.step,
		    updated_at = EXCLUDED.updated_at`,
		conversationID, agent, stateJSON, snap.Step)
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}

	s.logger.Debug("checkpoint saved",
		"conversation_id", conversationID,
		"agent", agent,
		"step", snap.Step,
		"messages", len(snap.Messages))
	return nil
}
