package timeline

import (
	"time"

	"agro-dashboard/backend/pkg/models"
)

// AnchorUpdate rewrites the "today" entry in place.
type AnchorUpdate struct {
	EntryID string
	StageID string
	Flow    string
}

// Plan is the set of store writes that applies one transition. It must be
// executed atomically: anchor update, then delete, then insert.
type Plan struct {
	Kind models.MoveKind
	// Anchor is nil when the anchor row is deleted and regenerated instead.
	Anchor *AnchorUpdate
	// DeleteFrom is the date from which the request's entries are removed.
	// DeleteInclusive removes the entry dated DeleteFrom as well.
	DeleteFrom      time.Time
	DeleteInclusive bool
	Inserts         []models.TimelineEntry
}

// Rebuild computes the plan for an allowed decision. req supplies the
// attributes of every regenerated entry; current is the anchor entry the
// operator moved from.
func Rebuild(req models.ProductionRequest, current models.TimelineEntry, d Decision, cat *Catalog) (*Plan, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}

	target, err := CheckBounds(cat, d.To)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Kind: d.Kind, DeleteFrom: current.Date}
	tomorrow := current.Date.AddDate(0, 0, 1)

	switch d.Kind {
	case models.MoveBackwardBoundary:
		// Re-open the stage being exited from its first day, following the
		// original minimum-day plan for everything after it.
		plan.Anchor = &AnchorUpdate{EntryID: current.ID, StageID: target.ID, Flow: d.To.String()}

		seq := cat.PlannedSequence()
		resume := FlowCode{Prefix: d.From.Prefix, Step: 0}
		idx := indexOf(seq, resume)
		if idx == -1 {
			return nil, newError(CodeCatalogIntegrity, "cannot resume from %s: not in the planned sequence", resume)
		}
		plan.Inserts = entriesFrom(req, seq[idx:], tomorrow)

	case models.MoveForward, models.MoveForwardBoundary:
		plan.Anchor = &AnchorUpdate{EntryID: current.ID, StageID: target.ID, Flow: d.To.String()}

		seq := cat.ExtendedSequence(d.To.Prefix)
		idx := indexOf(seq, d.To)
		if idx == -1 {
			return nil, newError(CodeCatalogIntegrity, "flow %s missing from the extended sequence", d.To)
		}
		plan.Inserts = entriesFrom(req, seq[idx+1:], tomorrow)

	case models.MoveBackward:
		plan.DeleteInclusive = true

		seq := cat.ExtendedSequence(d.To.Prefix)
		idx := indexOf(seq, d.To)
		if idx == -1 {
			return nil, newError(CodeCatalogIntegrity, "flow %s missing from the extended sequence", d.To)
		}
		plan.Inserts = entriesFrom(req, seq[idx:], current.Date)

	default:
		return nil, newError(CodeBlockedTransition, "unsupported move kind %q", d.Kind)
	}

	return plan, nil
}
