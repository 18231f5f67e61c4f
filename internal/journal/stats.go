package journal

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Stats counts journal entries by status and by action.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
	ByAction map[string]int `json:"by_action"`
}

func newStats() Stats {
	return Stats{ByStatus: map[Status]int{}, ByAction: map[string]int{}}
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := newStats()
	for _, e := range m.entries {
		st.Total++
		st.ByStatus[e.Status]++
		st.ByAction[e.Action]++
	}
	return st, nil
}

func (s *PgStore) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.pool.Query(ctx, `SELECT action, status, COUNT(*) FROM tx_journal GROUP BY action, status`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	st := newStats()
	for rows.Next() {
		var action, status string
		var n int
		if err := rows.Scan(&action, &status, &n); err != nil {
			return Stats{}, err
		}
		st.Total += n
		st.ByStatus[Status(status)] += n
		st.ByAction[action] += n
	}
	return st, rows.Err()
}

// GET /activity/stats
func ActivityStats(rec Recorder) echo.HandlerFunc {
	return func(c echo.Context) error {
		st, err := rec.Stats(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load stats"})
		}
		return c.JSON(http.StatusOK, st)
	}
}
