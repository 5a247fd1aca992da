package workflow

import (
	"context"

	"github.com/multimodal-agent/server/internal/infra"
	"github.com/multimodal-agent/server/internal/providers/llm"
)

// VisionModel analyses an image.
type VisionModel interface {
	GenerateWithImage(ctx context.Context, req llm.ImageRequest) (string, error)
}

// TextModel completes a text prompt.
type TextModel interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// Engine runs analyze, plan and generate over a State.
type Engine struct {
	vision  VisionModel
	planner TextModel
	coder   TextModel
	lang    Language
	logger  *infra.Logger
}

// NewEngine wires the three models. A nil logger discards output.
func NewEngine(vision VisionModel, planner, coder TextModel, lang Language, logger *infra.Logger) *Engine {
	if logger == nil {
		logger = infra.NopLogger()
	}
	if lang.Check == nil {
		lang = Python
	}
	return &Engine{vision: vision, planner: planner, coder: coder, lang: lang, logger: logger}
}

// Language returns the code generation target.
func (e *Engine) Language() Language {
	return e.lang
}

// Run drives st to a terminal step. Stage failures are recorded on st and
// never returned.
func (e *Engine) Run(ctx context.Context, st *State) *State {
	e.logger.Info().
		Str("job_id", st.JobID).
		Str("user_id", st.UserID).
		Bool("has_prompt", LatestInstruction(st.Messages) != "").
		Msg("workflow: start")

	e.analyze(ctx, st)
	for {
		switch Route(st) {
		case NextPlan:
			e.plan(ctx, st)
		case NextGenerate:
			e.generate(ctx, st)
		default:
			e.logger.Info().
				Str("job_id", st.JobID).
				Str("step", string(st.Step)).
				Bool("has_code", st.Code != "").
				Bool("has_error", st.Error != "").
				Msg("workflow: done")
			return st
		}
	}
}

func (e *Engine) analyze(ctx context.Context, st *State) {
	if len(st.Image) == 0 {
		st.fail("No image data available for analysis")
		return
	}
	mime := st.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	out, err := e.vision.GenerateWithImage(ctx, llm.ImageRequest{
		Request: llm.Request{
			Prompt:       visionUserPrompt(e.lang, LatestInstruction(st.Messages)),
			SystemPrompt: visionSystemPrompt,
			Temperature:  analyzeTemperature,
			MaxTokens:    analyzeMaxTokens,
		},
		Image:    st.Image,
		MIMEType: mime,
	})
	if err != nil {
		e.stageFailed(st, "analyze", err)
		st.fail("Image analysis failed: " + err.Error())
		return
	}
	st.Analysis = out
	st.Error = ""
	st.Step = StepAnalyzeComplete
	e.logger.Info().Str("job_id", st.JobID).Int("analysis_length", len(out)).Msg("workflow: analysis complete")
}

func (e *Engine) plan(ctx context.Context, st *State) {
	if st.Analysis == "" {
		st.fail("No image analysis available for planning")
		return
	}
	out, err := e.planner.Generate(ctx, llm.Request{
		Prompt:       planningUserPrompt(e.lang, st.Analysis, LatestInstruction(st.Messages)),
		SystemPrompt: planningSystemPrompt(e.lang),
		Temperature:  planTemperature,
		MaxTokens:    planMaxTokens,
	})
	if err != nil {
		e.stageFailed(st, "plan", err)
		st.fail("Planning failed: " + err.Error())
		return
	}
	st.Plan = out
	st.Error = ""
	st.Step = StepPlanningComplete
	e.logger.Info().Str("job_id", st.JobID).Int("plan_length", len(out)).Msg("workflow: planning complete")
}

func (e *Engine) generate(ctx context.Context, st *State) {
	if st.Analysis == "" {
		st.fail("No image analysis available for code generation")
		return
	}
	out, err := e.coder.Generate(ctx, llm.Request{
		Prompt:       codegenUserPrompt(e.lang, st.Analysis, st.Plan, LatestInstruction(st.Messages)),
		SystemPrompt: codegenSystemPrompt(e.lang),
		Temperature:  codegenTemperature,
		MaxTokens:    codegenMaxTokens,
	})
	if err != nil {
		e.stageFailed(st, "generate", err)
		st.fail("Code generation failed: " + err.Error())
		return
	}

	code := ExtractCode(out, e.lang)
	st.Code = code
	if err := e.lang.Check(code); err != nil {
		e.logger.Warn().Str("job_id", st.JobID).Err(err).Msg("workflow: generated code has syntax errors")
		st.Error = "Code has syntax errors: " + err.Error()
		st.Step = StepCodegenCompleteWithErrors
		return
	}
	st.Error = ""
	st.Step = StepCodegenComplete
	e.logger.Info().Str("job_id", st.JobID).Int("code_length", len(code)).Msg("workflow: code generation complete")
}

func (e *Engine) stageFailed(st *State, stage string, err error) {
	kind := "other"
	switch {
	case llm.IsConnection(err):
		kind = "connection"
	case llm.IsResponse(err):
		kind = "response"
	}
	e.logger.Error().
		Err(err).
		Str("job_id", st.JobID).
		Str("stage", stage).
		Str("kind", kind).
		Msg("workflow: stage failed")
}
