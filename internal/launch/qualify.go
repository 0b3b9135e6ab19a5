package launch

// Outcome classifies a line for the pipeline.
type Outcome int

const (
	// NotCandidate lines are not launches at all.
	NotCandidate Outcome = iota
	// CandidateIgnored lines are launches that trigger a refresh but are not counted.
	CandidateIgnored
	// CandidateQualified lines are counted against Result.Component.
	CandidateQualified
)

func (o Outcome) String() string {
	switch o {
	case NotCandidate:
		return "not-candidate"
	case CandidateIgnored:
		return "ignored"
	case CandidateQualified:
		return "qualified"
	default:
		return "unknown"
	}
}

// Reasons a candidate was ignored.
const (
	ReasonHome         = "home"
	ReasonNoFlags      = "no-flags"
	ReasonNotNewTask   = "not-new-task"
	ReasonNoUserAction = "no-user-action"
	ReasonNoComponent  = "no-component"
)

// Result is the qualification decision for one line.
type Result struct {
	Outcome   Outcome
	Reason    string
	Flags     Flags
	Component Component
}

// Qualify decides whether line is a user-initiated, top-level launch.
//
// Home launches are never counted so the launcher does not dominate usage;
// they still count as candidates so displays are refreshed.
func Qualify(line string) Result {
	cand, ok := Classify(line)
	if !ok {
		return Result{Outcome: NotCandidate}
	}
	if cand.HasHomeCategory {
		return ignored(ReasonHome, 0)
	}

	flags, ok := ExtractFlags(line)
	if !ok {
		return ignored(ReasonNoFlags, 0)
	}
	if !flags.Has(FlagNewTask) {
		return ignored(ReasonNotNewTask, flags)
	}
	if flags.Has(FlagNoUserAction) {
		return ignored(ReasonNoUserAction, flags)
	}

	comp, ok := ExtractComponent(line)
	if !ok {
		return ignored(ReasonNoComponent, flags)
	}
	return Result{Outcome: CandidateQualified, Flags: flags, Component: comp}
}

func ignored(reason string, flags Flags) Result {
	return Result{Outcome: CandidateIgnored, Reason: reason, Flags: flags}
}
