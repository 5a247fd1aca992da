package workflow

// Step marks how far a State has progressed.
type Step string

const (
	StepStart                     Step = "start"
	StepAnalyzeComplete           Step = "analyze_complete"
	StepPlanningComplete          Step = "planning_complete"
	StepCodegenComplete           Step = "codegen_complete"
	StepCodegenCompleteWithErrors Step = "codegen_complete_with_errors"
	StepError                     Step = "error"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation attached to a job.
type Message struct {
	Role    string
	Content string
}

// State is threaded through the stages of a single job run. It is owned by
// one goroutine and never shared.
type State struct {
	JobID     string
	UserID    string
	ImagePath string
	Image     []byte
	MIMEType  string
	Messages  []Message

	Analysis string
	Plan     string
	Code     string
	Error    string
	Step     Step
}

// NewState returns a State at StepStart. A non-empty instruction is recorded
// as the first user message.
func NewState(jobID, userID string, image []byte, mimeType, instruction string) *State {
	st := &State{
		JobID:    jobID,
		UserID:   userID,
		Image:    image,
		MIMEType: mimeType,
		Step:     StepStart,
	}
	if instruction != "" {
		st.Messages = append(st.Messages, Message{Role: RoleUser, Content: instruction})
	}
	return st
}

// Failed reports whether the run stopped on an error. A syntax error on
// generated code also counts: the code is kept but the run is not clean.
func (s *State) Failed() bool {
	return s.Error != ""
}

func (s *State) fail(msg string) {
	s.Error = msg
	s.Step = StepError
}

// LatestInstruction returns the most recent user-authored message, or "".
func LatestInstruction(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
