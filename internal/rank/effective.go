package rank

// SimulationHeader is the request header a developer may set to view the
// console as a lower rank.
const SimulationHeader = "x-simulated-rank"

// Effective resolves the rank used for visibility filtering. Only an actor
// whose actual rank is Developer may simulate; for everyone else, and for
// empty or unknown header values, the actual rank is returned unchanged.
//
// Simulation is strictly a view filter. Read paths scope their listings to
// the effective rank, but every permission and CanManage check runs against
// the actual rank, so a header neither grants nor revokes capability.
func Effective(actual Rank, simulatedHeader string) Rank {
	if actual != Developer || simulatedHeader == "" {
		return actual
	}
	sim, err := Parse(simulatedHeader)
	if err != nil {
		return actual
	}
	return sim
}
