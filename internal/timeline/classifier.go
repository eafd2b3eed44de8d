package timeline

import (
	"fmt"
	"strings"

	"agro-dashboard/backend/pkg/models"
)

// StepPosition locates the current step within its stage's
// [0, MaxDays) window.
type StepPosition string

const (
	PositionFirst    StepPosition = "first"
	PositionInterior StepPosition = "interior"
	PositionLast     StepPosition = "last"
)

// Decision is the outcome of classifying a requested move.
type Decision struct {
	Kind     models.MoveKind
	Position StepPosition
	From     FlowCode
	To       FlowCode
	// Options describes the destinations that would have been accepted.
	Options []string
}

// Allowed reports whether the move may be applied.
func (d Decision) Allowed() bool { return d.Kind != models.MoveBlocked }

// Err returns a BlockedTransition error for a blocked decision, nil
// otherwise.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	allowed := "none"
	if len(d.Options) > 0 {
		allowed = strings.Join(d.Options, ", ")
	}
	return newError(CodeBlockedTransition, "cannot move from %s to %s at the %s step of the stage; allowed: %s",
		d.From, d.To, d.Position, allowed)
}

// Classify decides whether moving from one flow to another is legal, given
// the stage the current entry belongs to.
//
// On the first day of a stage the only way out is back into any day of the
// previous stage. Inside a stage the operator steps one day at a time or
// jumps early to day 0 of the next stage. On the last day the operator may
// step back one day or cross into the next stage.
func Classify(cat *Catalog, current models.Stage, from, to FlowCode) Decision {
	prev, next := cat.Neighbors(current.ID)

	d := Decision{Kind: models.MoveBlocked, From: from, To: to}

	atFirst := from.Step == 0
	atLast := from.Step == current.MaxDays-1

	var nextStart FlowCode
	if next != nil {
		nextStart = FlowCode{Prefix: PrefixOf(*next), Step: 0}
	}

	switch {
	case atFirst:
		d.Position = PositionFirst
		if prev == nil {
			return d
		}
		prevPrefix := PrefixOf(*prev)
		d.Options = []string{fmt.Sprintf("%s…%s", Format(prevPrefix, 0), Format(prevPrefix, prev.MaxDays-1))}
		if to.Prefix == prevPrefix && to.Step >= 0 && to.Step < prev.MaxDays {
			d.Kind = models.MoveBackwardBoundary
		}

	case !atLast:
		d.Position = PositionInterior
		d.Options = []string{from.Next().String(), from.Prev().String()}
		if next != nil {
			d.Options = append(d.Options, nextStart.String())
		}
		switch {
		case next != nil && to == nextStart:
			d.Kind = models.MoveForwardBoundary
		case to == from.Next():
			d.Kind = models.MoveForward
		case to == from.Prev():
			d.Kind = models.MoveBackward
		}

	default:
		d.Position = PositionLast
		d.Options = []string{from.Prev().String()}
		if next != nil {
			d.Options = append(d.Options, nextStart.String())
		}
		switch {
		case to == from.Prev():
			d.Kind = models.MoveBackward
		case next != nil && to == nextStart:
			d.Kind = models.MoveForwardBoundary
		}
	}

	return d
}

// CheckBounds resolves the stage a destination flow belongs to and verifies
// the step lies within [0, MaxDays).
func CheckBounds(cat *Catalog, to FlowCode) (models.Stage, error) {
	stage, ok := cat.StageByPrefix(to.Prefix)
	if !ok {
		return models.Stage{}, newError(CodeFlowOutOfBounds, "no stage uses flow prefix %q", to.Prefix)
	}
	if to.Step < 0 || to.Step >= stage.MaxDays {
		return models.Stage{}, newError(CodeFlowOutOfBounds,
			"flow %s exceeds limits for stage %q; valid flows: %s…%s",
			to, stage.Name, Format(to.Prefix, 0), Format(to.Prefix, stage.MaxDays-1))
	}
	return stage, nil
}
