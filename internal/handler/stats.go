package handler

import (
	"net/http"

	"github.com/contractdesk/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsHandler exposes aggregate counts for the admin dashboard.
type StatsHandler struct {
	db *pgxpool.Pool
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(db *pgxpool.Pool) *StatsHandler {
	return &StatsHandler{db: db}
}

// Overview handles GET /api/admin/stats.
func (h *StatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var userCount int
	if err := h.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role <> 'ADMIN'`).Scan(&userCount); err != nil {
		Error(w, err)
		return
	}

	var contractCount int
	if err := h.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM contracts`).Scan(&contractCount); err != nil {
		Error(w, err)
		return
	}

	byStatus := map[string]int{}
	rows, err := h.db.Query(ctx,
		`SELECT status, COUNT(*) FROM contracts GROUP BY status`)
	if err != nil {
		Error(w, err)
		return
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err == nil {
			byStatus[status] = count
		}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"users":     userCount,
		"contracts": contractCount,
		"byStatus":  byStatus,
		"awaiting":  byStatus[string(domain.StatusAwaitingSignature)],
		"signed":    byStatus[string(domain.StatusSigned)],
	})
}
