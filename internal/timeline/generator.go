package timeline

import (
	"time"

	"agro-dashboard/backend/pkg/models"
)

// Generate expands the planned (minimum-day) sequence into one unsaved
// timeline entry per day. The entry carrying req.Flow in req.StageID is
// dated req.StartDate; every other entry is offset by its distance in the
// sequence, so a request may start partway through the cycle while still
// getting the full history and future.
func Generate(req models.ProductionRequest, cat *Catalog) ([]models.TimelineEntry, error) {
	flow, err := ParseFlowCode(req.Flow)
	if err != nil {
		return nil, err
	}

	seq := cat.PlannedSequence()

	anchor := -1
	for i, s := range seq {
		if s.StageID == req.StageID && s.Flow == flow {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		return nil, newError(CodeInvalidStageFlowCombination,
			"flow %s is not a planned day of stage %q", flow, req.StageID)
	}

	first := req.StartDate.AddDate(0, 0, -anchor)
	return entriesFrom(req, seq, first), nil
}

// entriesFrom builds one entry per step, dated consecutively from base.
// Entry attributes are always taken from the request.
func entriesFrom(req models.ProductionRequest, seq []SequenceStep, base time.Time) []models.TimelineEntry {
	entries := make([]models.TimelineEntry, 0, len(seq))
	for i, s := range seq {
		day := base.AddDate(0, 0, i)
		code := s.Flow.String()
		entries = append(entries, models.TimelineEntry{
			RequestID:   req.ID,
			Name:        req.Name,
			PhaseID:     req.PhaseID,
			RoomID:      req.RoomID,
			StageID:     s.StageID,
			Flow:        code,
			CurrentFlow: code,
			StartDate:   day,
			EndDate:     day.AddDate(0, 0, 1),
			Date:        day,
			SpecialCase: req.SpecialCase,
		})
	}
	return entries
}
