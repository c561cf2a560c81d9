package twopc

type Phase int

const (
	PhaseOpen = Phase(iota)
	PhasePreparing
	PhasePrepared
	PhaseCommitting
	PhaseCommitted
	PhaseAborting
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "OPEN"
	case PhasePreparing:
		return "PREPARING"
	case PhasePrepared:
		return "PREPARED"
	case PhaseCommitting:
		return "COMMITTING"
	case PhaseCommitted:
		return "COMMITTED"
	case PhaseAborting:
		return "ABORTING"
	case PhaseAborted:
		return "ABORTED"
	}
	return "invalid"
}

// terminal reports whether the transaction has released its resources.
func (p Phase) terminal() bool {
	return p == PhaseCommitted || p == PhaseAborted
}
