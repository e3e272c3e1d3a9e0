package rank

// visibility is the authored table of which ranks an actor may list or
// manage records for. It is not derived from the permission table.
// Developer sees every rank including its own; every other rank sees only
// ranks strictly below itself.
var visibility = map[Rank][]Rank{
	Developer: {Developer, Admin, Moderator, Werknemer, Gebruiker},
	Admin:     {Moderator, Werknemer, Gebruiker},
	Moderator: {Werknemer, Gebruiker},
	Werknemer: {Gebruiker},
	Gebruiker: {},
}

// VisibleRanks returns the ranks effective may see, most senior first.
// The returned slice is a copy; callers may mutate it.
func VisibleRanks(effective Rank) []Rank {
	src := visibility[effective]
	out := make([]Rank, len(src))
	copy(out, src)
	return out
}

// CanSee reports whether effective may see records of target.
func CanSee(effective, target Rank) bool {
	for _, r := range visibility[effective] {
		if r == target {
			return true
		}
	}
	return false
}

// CanManage reports whether actor may perform destructive operations on
// target: only when actor is strictly senior. Peers and seniors (including
// the actor's own rank) are never manageable.
func CanManage(actor, target Rank) bool {
	if !actor.Valid() || !target.Valid() {
		return false
	}
	return actor.Outranks(target)
}
