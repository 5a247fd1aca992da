package workflow

import "testing"

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		st   *State
		want Next
	}{
		{"analyze complete goes to plan", &State{Step: StepAnalyzeComplete}, NextPlan},
		{"planning complete goes to generate", &State{Step: StepPlanningComplete}, NextGenerate},
		{"codegen complete ends", &State{Step: StepCodegenComplete}, NextEnd},
		{"codegen with errors ends", &State{Step: StepCodegenCompleteWithErrors, Error: "Code has syntax errors: x"}, NextEnd},
		{"error ends regardless of other fields", &State{Step: StepError, Error: "x", Analysis: "a", Plan: "p"}, NextEnd},
		{"start ends", &State{Step: StepStart}, NextEnd},
		{"unset step ends", &State{}, NextEnd},
		{"unknown step ends", &State{Step: "bogus"}, NextEnd},
		{"nil state ends", nil, NextEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Route(tt.st); got != tt.want {
				t.Fatalf("Route() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLatestInstruction(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     string
	}{
		{"empty", nil, ""},
		{"single user", []Message{{Role: RoleUser, Content: "plot it"}}, "plot it"},
		{"newest user wins", []Message{{Role: RoleUser, Content: "old"}, {Role: RoleAssistant, Content: "ok"}, {Role: RoleUser, Content: "new"}}, "new"},
		{"skips trailing assistant", []Message{{Role: RoleUser, Content: "ask"}, {Role: RoleAssistant, Content: "answer"}}, "ask"},
		{"assistant only", []Message{{Role: RoleAssistant, Content: "answer"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LatestInstruction(tt.messages); got != tt.want {
				t.Fatalf("LatestInstruction() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewStateRecordsInstruction(t *testing.T) {
	st := NewState("job-1", "user-1", []byte("img"), "image/png", "make a chart")
	if st.Step != StepStart {
		t.Fatalf("step = %s, want start", st.Step)
	}
	if len(st.Messages) != 1 || st.Messages[0].Role != RoleUser {
		t.Fatalf("messages = %+v", st.Messages)
	}
	if empty := NewState("job-1", "user-1", nil, "", ""); len(empty.Messages) != 0 {
		t.Fatalf("empty instruction should not add a message")
	}
}
