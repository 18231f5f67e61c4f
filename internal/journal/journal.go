package journal

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/hushousing/internal/chain"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Entry records one write attempt against the marketplace or token contract.
type Entry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Index     int       `json:"index"`
	Account   string    `json:"account"`
	TxHash    string    `json:"tx_hash,omitempty"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry builds an entry from the outcome of a gateway write.
// index is -1 for actions that are not tied to a listing.
func NewEntry(action string, index int, account common.Address, hash common.Hash, err error) Entry {
	e := Entry{
		ID:        uuid.New().String(),
		Action:    action,
		Index:     index,
		Account:   account.Hex(),
		Status:    StatusConfirmed,
		CreatedAt: time.Now().UTC(),
	}
	if hash != (common.Hash{}) {
		e.TxHash = hash.Hex()
	}
	if err != nil {
		e.Error = err.Error()
		switch {
		case errors.Is(err, chain.ErrReverted):
			e.Status = StatusFailed
		case e.TxHash != "":
			// sent but never observed mined
			e.Status = StatusSubmitted
		default:
			e.Status = StatusFailed
		}
	}
	return e
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Stats(ctx context.Context) (Stats, error)
}

// Memory keeps the most recent entries in process.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 100
	}
	return &Memory{max: max}
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if len(m.entries) > m.max {
		m.entries = m.entries[len(m.entries)-m.max:]
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *Memory) Recent(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// PgStore persists entries to the tx_journal table.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) Record(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tx_journal (id, action, listing_index, account, tx_hash, status, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Action, e.Index, e.Account, e.TxHash, string(e.Status), e.Error, e.CreatedAt,
	)
	return err
}

func (s *PgStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, action, listing_index, account, tx_hash, status, error, created_at
		 FROM tx_journal ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.ID, &e.Action, &e.Index, &e.Account, &e.TxHash, &status, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Status = Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListActivity returns recent journal entries, newest first
func ListActivity(rec Recorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 20
		if l := c.QueryParam("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
				limit = v
			}
		}
		entries, err := rec.Recent(c.Request().Context(), limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load activity"})
		}
		if entries == nil {
			entries = []Entry{}
		}
		return c.JSON(http.StatusOK, echo.Map{"activity": entries})
	}
}
