package domain

// GroupProgress tracks a multi-track batch announced by downloadGroupPlanned
type GroupProgress struct {
	Origin   Origin
	Planned  int
	Finished int
	Failed   int
}

// Done returns true once every planned job has terminated
func (g GroupProgress) Done() bool {
	return g.Planned > 0 && g.Finished+g.Failed >= g.Planned
}

// Remaining returns the number of planned jobs still outstanding
func (g GroupProgress) Remaining() int {
	n := g.Planned - g.Finished - g.Failed
	if n < 0 {
		return 0
	}
	return n
}

// GroupTracker exposes batch progress to views
type GroupTracker interface {
	Group(origin Origin) (GroupProgress, bool)
}

// NoGroups reports no batch progress (for testing/views without a bridge).
type NoGroups struct{}

func (NoGroups) Group(Origin) (GroupProgress, bool) { return GroupProgress{}, false }
