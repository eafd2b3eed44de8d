package timeline

import (
	"sort"
	"strings"

	"agro-dashboard/backend/pkg/models"
)

// Catalog is an immutable snapshot of the stage catalog, indexed by id,
// position and flow prefix. Build one per operation with NewCatalog and pass
// it to the generator, classifier and rebuilder.
type Catalog struct {
	stages   []models.Stage
	byID     map[string]int
	byPrefix map[string]int
	prefixes []string
}

// SequenceStep is one day of a catalog sequence.
type SequenceStep struct {
	StageID string
	Flow    FlowCode
}

// NewCatalog validates the stages and returns them as a position-ordered
// snapshot. Positions and prefixes must be unique, every stage needs a
// letters-only prefix, and day bounds must satisfy 1 <= min <= max.
func NewCatalog(stages []models.Stage) (*Catalog, error) {
	sorted := make([]models.Stage, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	c := &Catalog{
		stages:   sorted,
		byID:     make(map[string]int, len(sorted)),
		byPrefix: make(map[string]int, len(sorted)),
		prefixes: make([]string, len(sorted)),
	}

	for i, s := range sorted {
		if i > 0 && sorted[i-1].Position == s.Position {
			return nil, newError(CodeCatalogIntegrity, "stages %q and %q share position %d", sorted[i-1].Name, s.Name, s.Position)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, newError(CodeCatalogIntegrity, "stage id %q appears twice", s.ID)
		}
		if err := ValidateStage(s); err != nil {
			return nil, err
		}

		prefix := PrefixOf(s)
		if other, dup := c.byPrefix[prefix]; dup {
			return nil, newError(CodeCatalogIntegrity, "stages %q and %q share flow prefix %q", sorted[other].Name, s.Name, prefix)
		}

		c.byID[s.ID] = i
		c.byPrefix[prefix] = i
		c.prefixes[i] = prefix
	}

	return c, nil
}

// ValidateStage checks the fields of a single stage definition.
func ValidateStage(s models.Stage) error {
	prefix := PrefixOf(s)
	if prefix == "" {
		return newError(CodeCatalogIntegrity, "stage %q has neither code nor name to derive a flow prefix", s.ID)
	}
	for i := 0; i < len(prefix); i++ {
		if !isLetter(prefix[i]) {
			return newError(CodeCatalogIntegrity, "stage %q prefix %q must contain letters only", s.Name, prefix)
		}
	}
	if s.MinDays < 1 {
		return newError(CodeCatalogIntegrity, "stage %q min_days must be at least 1, got %d", s.Name, s.MinDays)
	}
	if s.MaxDays < s.MinDays {
		return newError(CodeCatalogIntegrity, "stage %q max_days %d is below min_days %d", s.Name, s.MaxDays, s.MinDays)
	}
	return nil
}

// Stages returns the stages in position order.
func (c *Catalog) Stages() []models.Stage {
	out := make([]models.Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// Len returns the number of stages.
func (c *Catalog) Len() int { return len(c.stages) }

// StageByID looks up a stage by id.
func (c *Catalog) StageByID(id string) (models.Stage, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Stage{}, false
	}
	return c.stages[i], true
}

// StageByPrefix looks up a stage by flow prefix (case-insensitive).
func (c *Catalog) StageByPrefix(prefix string) (models.Stage, bool) {
	i, ok := c.byPrefix[strings.ToUpper(prefix)]
	if !ok {
		return models.Stage{}, false
	}
	return c.stages[i], true
}

// Prefix returns the flow prefix of a catalog stage.
func (c *Catalog) Prefix(stageID string) string {
	i, ok := c.byID[stageID]
	if !ok {
		return ""
	}
	return c.prefixes[i]
}

// Neighbors returns the stages immediately before and after the given
// stage by position. Either is nil at the catalog ends.
func (c *Catalog) Neighbors(stageID string) (prev, next *models.Stage) {
	i, ok := c.byID[stageID]
	if !ok {
		return nil, nil
	}
	if i > 0 {
		p := c.stages[i-1]
		prev = &p
	}
	if i < len(c.stages)-1 {
		n := c.stages[i+1]
		next = &n
	}
	return prev, next
}

// PlannedSequence walks every stage at its minimum day count.
func (c *Catalog) PlannedSequence() []SequenceStep {
	return c.sequence("")
}

// ExtendedSequence walks every stage at its minimum day count except the
// stage with the given prefix, which is walked at its maximum.
func (c *Catalog) ExtendedSequence(activePrefix string) []SequenceStep {
	return c.sequence(strings.ToUpper(activePrefix))
}

func (c *Catalog) sequence(activePrefix string) []SequenceStep {
	var seq []SequenceStep
	for i, s := range c.stages {
		bound := s.MinDays
		if activePrefix != "" && c.prefixes[i] == activePrefix {
			bound = s.MaxDays
		}
		for step := 0; step < bound; step++ {
			seq = append(seq, SequenceStep{
				StageID: s.ID,
				Flow:    FlowCode{Prefix: c.prefixes[i], Step: step},
			})
		}
	}
	return seq
}

// indexOf returns the position of flow in seq, or -1.
func indexOf(seq []SequenceStep, flow FlowCode) int {
	for i, s := range seq {
		if s.Flow == flow {
			return i
		}
	}
	return -1
}
