package sqlite

import (
	"encoding/json"

	"github.com/zjrosen/waypoint/internal/view"
)

// HistoryModel is a row of the history_entries table.
type HistoryModel struct {
	ID        int64
	Scope     string
	Position  int64
	View      string
	Data      *string // nullable, JSON encoded
	Token     string
	CreatedAt int64 // Unix timestamp
}

func toHistoryModel(scope string, position int64, e view.Entry, createdAt int64) (*HistoryModel, error) {
	m := &HistoryModel{
		Scope:     scope,
		Position:  position,
		View:      e.View,
		Token:     e.Token,
		CreatedAt: createdAt,
	}
	if len(e.Data) > 0 {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		data := string(raw)
		m.Data = &data
	}
	return m, nil
}

func (m *HistoryModel) toEntry() view.Entry {
	e := view.Entry{View: m.View, Token: m.Token}
	if m.Data != nil {
		// Undecodable data is dropped; the entry still names a view.
		_ = json.Unmarshal([]byte(*m.Data), &e.Data)
	}
	return e
}
