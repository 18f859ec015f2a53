package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/healthfin/healthcare-api/models"
)

const (
	nodeEntryRouter    = "entry_router"
	nodeNarrativeAgent = "narrative_agent"
	nodeFollowupAgent  = "followup_question_agent"

	questionTypeGreeting      = "greeting"
	questionTypeAnalysis      = "analysis"
	questionTypeClarification = "clarification"

	maxHistoryInPrompt = 5
)

const routerSystemPrompt = `You route questions sent to a healthcare finance analytics assistant.
Answer with a single JSON object with the keys:
- "question_type": "greeting" for small talk, "clarification" when the business area cannot be
  determined, "analysis" otherwise.
- "rewritten_question": the question made self contained using the previous questions.
- "domain_selection": the business area, for example "claims", "pharmacy", "revenue cycle".
- "greeting_response": a short friendly answer, only for greetings.
- "domain_followup_question": the question to ask the user, only for clarifications.`

const narrativeSystemPrompt = `You are a healthcare finance analyst. Answer the question in a few short
paragraphs of plain text. State assumptions explicitly and never invent figures.`

const followupSystemPrompt = `Suggest three short follow-up questions a healthcare finance analyst
could ask next. Answer with a JSON array of strings.`

// LlmWorkflow answers questions with a generative model: it routes the
// question, writes a narrative answer, then suggests follow-up questions.
type LlmWorkflow struct {
	generator TextGenerator
	now       func() time.Time
}

func NewLlmWorkflow(generator TextGenerator) *LlmWorkflow {
	return &LlmWorkflow{generator: generator, now: time.Now}
}

func (w *LlmWorkflow) Mode() Mode { return ModeLlm }

func (w *LlmWorkflow) Run(ctx context.Context, req models.WorkflowRequest) <-chan models.WorkflowEvent {
	events := make(chan models.WorkflowEvent)

	go func() {
		defer close(events)
		fail := func(err error) {
			emit(ctx, events, models.WorkflowEvent{Type: models.WorkflowEventError, Error: err.Error()})
		}

		state, err := BuildInitialState(req, w.now())
		if err != nil {
			fail(err)
			return
		}
		if !emit(ctx, events, models.WorkflowEvent{Type: models.WorkflowEventStart}) {
			return
		}

		routed, err := w.route(ctx, state)
		if err != nil {
			fail(err)
			return
		}
		for k, v := range routed {
			state[k] = v
		}
		appendHistory(state, req.Question)
		if !emit(ctx, events, models.WorkflowEvent{
			Type:   models.WorkflowEventNodeComplete,
			Node:   nodeEntryRouter,
			Status: NodeStatusMessage(nodeEntryRouter, routed),
		}) {
			return
		}

		if state.String(models.StateKeyQuestionType) != questionTypeAnalysis {
			emit(ctx, events, models.WorkflowEvent{Type: models.WorkflowEventEnd, State: state})
			return
		}

		narrative, err := w.generator.Generate(ctx, narrativeSystemPrompt, narrativePrompt(state), false)
		if err != nil {
			fail(err)
			return
		}
		state["narrative_response"] = narrative
		if !emit(ctx, events, models.WorkflowEvent{
			Type:   models.WorkflowEventNodeComplete,
			Node:   nodeNarrativeAgent,
			Status: NodeStatusMessage(nodeNarrativeAgent, nil),
		}) {
			return
		}
		if !emit(ctx, events, models.WorkflowEvent{Type: models.WorkflowEventNarrative, Content: narrative}) {
			return
		}

		if questions := w.followups(ctx, state); len(questions) > 0 {
			state["followup_questions"] = questions
			if !emit(ctx, events, models.WorkflowEvent{
				Type:   models.WorkflowEventNodeComplete,
				Node:   nodeFollowupAgent,
				Status: NodeStatusMessage(nodeFollowupAgent, nil),
			}) {
				return
			}
			if !emit(ctx, events, models.WorkflowEvent{Type: models.WorkflowEventFollowupQuestions, Questions: questions}) {
				return
			}
		}

		emit(ctx, events, models.WorkflowEvent{Type: models.WorkflowEventEnd, State: state})
	}()

	return events
}

// route classifies the question. Unparseable answers are treated as analysis questions.
func (w *LlmWorkflow) route(ctx context.Context, state models.AgentState) (map[string]any, error) {
	question := state.String(models.StateKeyUserQuestion)
	raw, err := w.generator.Generate(ctx, routerSystemPrompt, routerPrompt(state), true)
	if err != nil {
		return nil, err
	}

	routed := map[string]any{
		models.StateKeyQuestionType: questionTypeAnalysis,
		"rewritten_question":        question,
		models.StateKeyNextAgent:    nodeNarrativeAgent,
	}
	if !gjson.Valid(raw) {
		logger(ctx).WarnContext(ctx, "router answer is not valid json, defaulting to analysis")
		return routed, nil
	}

	answer := gjson.Parse(raw)
	if rewritten := answer.Get("rewritten_question").String(); rewritten != "" {
		routed["rewritten_question"] = rewritten
	}
	if domain := answer.Get("domain_selection").String(); domain != "" {
		routed["domain_selection"] = domain
	}

	switch answer.Get("question_type").String() {
	case questionTypeGreeting:
		routed[models.StateKeyQuestionType] = questionTypeGreeting
		routed[models.StateKeyNextAgent] = "end"
		greeting := answer.Get("greeting_response").String()
		if greeting == "" {
			greeting = "Hello! Ask me anything about your healthcare finance data."
		}
		routed["greeting_response"] = greeting
	case questionTypeClarification:
		routed[models.StateKeyQuestionType] = questionTypeClarification
		routed[models.StateKeyNextAgent] = "end"
		routed["requires_domain_clarification"] = true
		followup := answer.Get("domain_followup_question").String()
		if followup == "" {
			followup = "Which area would you like to analyze: claims, pharmacy or revenue cycle?"
		}
		routed["domain_followup_question"] = followup
	}
	return routed, nil
}

// followups never fails the run, suggestions are optional.
func (w *LlmWorkflow) followups(ctx context.Context, state models.AgentState) []string {
	raw, err := w.generator.Generate(ctx, followupSystemPrompt, narrativePrompt(state), true)
	if err != nil {
		logger(ctx).WarnContext(ctx, "could not generate follow-up questions", "error", err.Error())
		return nil
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsArray() {
		return nil
	}

	var questions []string
	for _, q := range parsed.Array() {
		if s := strings.TrimSpace(q.String()); s != "" {
			questions = append(questions, s)
		}
	}
	return questions
}

func routerPrompt(state models.AgentState) string {
	var b strings.Builder
	if history := questionHistory(state); len(history) > 0 {
		b.WriteString("Previous questions:\n")
		for _, q := range history {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	fmt.Fprintf(&b, "Question: %s", state.String(models.StateKeyUserQuestion))
	return b.String()
}

func narrativePrompt(state models.AgentState) string {
	question := state.String("rewritten_question")
	if question == "" {
		question = state.String(models.StateKeyUserQuestion)
	}
	if domain := state.String("domain_selection"); domain != "" {
		return fmt.Sprintf("Business area: %s\nQuestion: %s", domain, question)
	}
	return "Question: " + question
}

func questionHistory(state models.AgentState) []string {
	raw, _ := state[models.StateKeyQuestionHistory].([]any)
	history := make([]string, 0, len(raw))
	for _, q := range raw {
		if s, ok := q.(string); ok {
			history = append(history, s)
		}
	}
	if len(history) > maxHistoryInPrompt {
		history = history[len(history)-maxHistoryInPrompt:]
	}
	return history
}

func appendHistory(state models.AgentState, question string) {
	history, _ := state[models.StateKeyQuestionHistory].([]any)
	state[models.StateKeyQuestionHistory] = append(history, question)
}
