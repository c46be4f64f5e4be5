package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/Yashkalwar/autonomous-P1/internal/contracts"
)

// HistoryStore is the append-only record of completed interactions, capped
// at the newest maxEntries rows.
type HistoryStore struct {
	DB         *sql.DB
	maxEntries int
}

func NewHistoryStore(dbPath string, maxEntries int) (*HistoryStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	query := `CREATE TABLE IF NOT EXISTS interactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id TEXT,
		user_query TEXT,
		plan_summary TEXT,
		execution_results TEXT,
		sentiment TEXT DEFAULT 'neutral',
		tags TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(query); err != nil {
		return nil, err
	}

	if maxEntries <= 0 {
		maxEntries = 100
	}

	return &HistoryStore{DB: db, maxEntries: maxEntries}, nil
}

// StoreInteraction appends one entry and evicts the oldest rows beyond the
// cap.
func (h *HistoryStore) StoreInteraction(entry contracts.MemoryEntry) error {
	results, err := json.Marshal(entry.ExecutionResults)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(entry.Tags)
	if err != nil {
		return err
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err = h.DB.Exec(
		`INSERT INTO interactions (entry_id, user_query, plan_summary, execution_results, sentiment, tags, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.EntryID, entry.UserQuery, entry.PlanSummary, string(results), entry.Sentiment, string(tags), entry.Timestamp,
	)
	if err != nil {
		return err
	}

	// Evict oldest entries beyond the cap
	_, err = h.DB.Exec(
		`DELETE FROM interactions WHERE id NOT IN (
			SELECT id FROM interactions ORDER BY id DESC LIMIT ?
		)`, h.maxEntries)
	return err
}

// GetRecentInteractions returns up to limit entries, newest first.
func (h *HistoryStore) GetRecentInteractions(limit int) ([]contracts.MemoryEntry, error) {
	rows, err := h.DB.Query(
		`SELECT entry_id, user_query, plan_summary, execution_results, sentiment, tags, timestamp
		 FROM interactions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// SearchSimilar scores past interactions by keyword overlap: query words
// found in the stored user query count double against plan summary words.
func (h *HistoryStore) SearchSimilar(query string, limit int) ([]contracts.MemoryEntry, error) {
	entries, err := h.GetRecentInteractions(h.maxEntries)
	if err != nil {
		return nil, err
	}

	type scored struct {
		entry contracts.MemoryEntry
		score int
	}

	var matches []scored
	for _, entry := range entries {
		queryLower := strings.ToLower(entry.UserQuery)
		summaryLower := strings.ToLower(entry.PlanSummary)

		score := 0
		for _, word := range strings.Fields(strings.ToLower(query)) {
			if strings.Contains(queryLower, word) {
				score += 2
			}
			if strings.Contains(summaryLower, word) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{entry: entry, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	result := make([]contracts.MemoryEntry, 0, len(matches))
	for _, m := range matches {
		result = append(result, m.entry)
	}
	return result, nil
}

// Stats summarizes stored interactions for the status surface.
func (h *HistoryStore) Stats() (map[string]any, error) {
	stats := map[string]any{"total_interactions": 0}

	var total int
	if err := h.DB.QueryRow(`SELECT COUNT(*) FROM interactions`).Scan(&total); err != nil {
		return stats, err
	}
	stats["total_interactions"] = total
	if total == 0 {
		return stats, nil
	}

	rows, err := h.DB.Query(`SELECT sentiment, COUNT(*) FROM interactions GROUP BY sentiment`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	sentiments := map[string]int{}
	for rows.Next() {
		var sentiment string
		var count int
		if err := rows.Scan(&sentiment, &count); err != nil {
			return stats, err
		}
		sentiments[sentiment] = count
	}
	stats["sentiment_distribution"] = sentiments
	return stats, rows.Err()
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}

func scanEntries(rows *sql.Rows) ([]contracts.MemoryEntry, error) {
	var entries []contracts.MemoryEntry
	for rows.Next() {
		var entry contracts.MemoryEntry
		var results, tags string
		if err := rows.Scan(&entry.EntryID, &entry.UserQuery, &entry.PlanSummary, &results, &entry.Sentiment, &tags, &entry.Timestamp); err != nil {
			return nil, err
		}
		if results != "" {
			_ = json.Unmarshal([]byte(results), &entry.ExecutionResults)
		}
		if tags != "" {
			_ = json.Unmarshal([]byte(tags), &entry.Tags)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
