package application

import (
	"time"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
)

// Statuses
const (
	StatusApplied     = "applied"
	StatusUnderReview = "under_review"
	StatusAccepted    = "accepted"
	StatusRejected    = "rejected"
	StatusWithdrawn   = "withdrawn"
)

var (
	Statuses = []string{StatusApplied, StatusUnderReview, StatusAccepted, StatusRejected, StatusWithdrawn}

	// ItemTypes are the catalog kinds one can apply to.
	ItemTypes = []catalog.Kind{catalog.KindCollege, catalog.KindCourse, catalog.KindScholarship}

	transitions = map[string][]string{
		StatusApplied:     {StatusUnderReview, StatusWithdrawn},
		StatusUnderReview: {StatusAccepted, StatusRejected, StatusWithdrawn},
	}
)

// CanTransition reports whether an application may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

type (
	Application struct {
		ID        string         `json:"id"`
		UserID    string         `json:"user_id"`
		ItemType  catalog.Kind   `json:"item_type"`
		ItemID    string         `json:"item_id"`
		ItemName  string         `json:"item_name"`
		Status    string         `json:"status"`
		Notes     string         `json:"notes"`
		History   []StatusChange `json:"history"`
		CreatedAt time.Time      `json:"created_at"` // UTC
		UpdatedAt time.Time      `json:"updated_at"` // UTC
	}

	StatusChange struct {
		From      string    `json:"from"`
		To        string    `json:"to"`
		ChangedBy string    `json:"changed_by"` // user ID
		Notes     string    `json:"notes,omitempty"`
		At        time.Time `json:"at"` // UTC
	}

	NewApplication struct {
		ItemType string `json:"item_type" validate:"required,oneof=college course scholarship"`
		ItemID   string `json:"item_id" validate:"required"`
		Notes    string `json:"notes" validate:"max=2000"`
	}

	// StatusUpdate is an administrator's decision on an application.
	StatusUpdate struct {
		Status string `json:"status" validate:"required,oneof=under_review accepted rejected"`
		Notes  string `json:"notes" validate:"max=2000"`
	}

	QueryFilter struct {
		Status   string `query:"status" validate:"omitempty,appstatus"`
		ItemType string `query:"item_type" validate:"omitempty,oneof=college course scholarship"`
	}
)

// IsActive reports whether the application still counts against the one-per-item rule.
func (app Application) IsActive() bool {
	return app.Status != StatusWithdrawn
}

func (na *NewApplication) clean() {
	na.ItemType = core.CleanString(na.ItemType, true /* lower */)
	na.ItemID = core.CleanString(na.ItemID)
	na.Notes = core.CleanString(na.Notes)
}

func (su *StatusUpdate) clean() {
	su.Status = core.CleanString(su.Status, true /* lower */)
	su.Notes = core.CleanString(su.Notes)
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.ItemType = core.CleanString(qf.ItemType, true /* lower */)
}
