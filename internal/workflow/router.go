package workflow

// Next names the stage the router dispatches to.
type Next int

const (
	NextEnd Next = iota
	NextPlan
	NextGenerate
)

func (n Next) String() string {
	switch n {
	case NextPlan:
		return "plan"
	case NextGenerate:
		return "generate"
	default:
		return "end"
	}
}

// Route decides the next stage from the state alone. Unknown or unset steps
// end the run without being treated as errors.
func Route(st *State) Next {
	if st == nil {
		return NextEnd
	}
	if st.Error != "" && st.Step == StepError {
		return NextEnd
	}
	switch st.Step {
	case StepAnalyzeComplete:
		return NextPlan
	case StepPlanningComplete:
		return NextGenerate
	default:
		return NextEnd
	}
}
