package group

// Group is owned by the surrounding application; this subsystem reads it and
// only ever advances the rivalry-week cursor.
type Group struct {
	ID       string
	LeagueID string
	Season   string
	// ActivationWeek is the first week bonus/rivalry features apply to
	// this group.
	ActivationWeek int
	// NextRivalryWeek is the cursor the rivalry engine advances by four
	// weeks after each assignment.
	NextRivalryWeek int
}

// FeaturesActive reports whether bonus/rivalry features apply at the week.
func (g Group) FeaturesActive(week int) bool {
	return g.ActivationWeek > 0 && week >= g.ActivationWeek
}
