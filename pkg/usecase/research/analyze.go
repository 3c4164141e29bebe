package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/keyword"
	"github.com/m-mizutani/marten/pkg/memory"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/utils/logging"
)

// Result is the outcome of one AnalyzeQuery call
type Result struct {
	Query     string          `json:"query"`
	SessionID model.SessionID `json:"session_id"`
	Report    string          `json:"result"`
	Category  model.Category  `json:"agent"`
	FollowUp  bool            `json:"follow_up"`
	Demo      bool            `json:"demo_mode,omitempty"`
	Session   memory.Status   `json:"session"`
	States    []State         `json:"-"`
	Err       error           `json:"-"`
	Timestamp time.Time       `json:"timestamp"`
}

func (r *Result) enter(ctx context.Context, s State) {
	r.States = append(r.States, s)
	logging.From(ctx).Debug("state", "state", s, "session_id", r.SessionID)
}

func (r *Result) fail(ctx context.Context, err error) {
	r.Err = err
	r.Report = "Error processing query: " + err.Error()
	logging.From(ctx).Error("failed to process query", "error", err, "session_id", r.SessionID, "query", r.Query)
}

// AnalyzeQuery answers query for session id. It never returns an error:
// failures are rendered into the report.
func (uc *UseCase) AnalyzeQuery(ctx context.Context, id model.SessionID, query string) (result *Result) {
	if id == "" {
		id = model.DefaultSessionID
	}
	query = strings.TrimSpace(query)

	result = &Result{
		Query:     query,
		SessionID: id,
		Category:  model.CategoryGeneral,
		Timestamp: uc.now(),
	}
	ctx = logging.With(ctx, logging.From(ctx).With("session_id", id))
	result.enter(ctx, StateIdle)

	if query == "" {
		result.fail(ctx, goerr.New("query is empty"))
		return result
	}

	mem := uc.store.Acquire(id)
	defer mem.Release()

	defer func() {
		if r := recover(); r != nil {
			result.fail(ctx, goerr.New("panic while processing query", goerr.V("panic", fmt.Sprint(r))))
		}
		result.Session = mem.Status()
	}()

	if mem.HasActiveSession() {
		ssn := mem.Snapshot()
		if !keyword.IsNewResearch(query, ssn.Subject) {
			uc.followUp(ctx, result, mem, ssn)
			return result
		}
		logging.From(ctx).Info("topic changed, clearing research session", "subject", ssn.Subject)
		mem.ClearSession()
	}

	result.enter(ctx, StateClassifying)
	category := uc.classifier.Classify(ctx, query)
	routed, err := uc.policy.Route(ctx, query, category)
	if err != nil {
		logging.From(ctx).Warn("routing policy failed, keeping classification", "error", err)
	}
	category = routed
	result.Category = category
	logging.From(ctx).Info("classified query", "query", query, "category", category)

	result.enter(ctx, StateCollecting)
	report, err := uc.handlers[category].Process(ctx, query, category, mem)
	if err != nil {
		result.fail(ctx, goerr.Wrap(err, "handler failed", goerr.V("category", category)))
		return result
	}

	result.enter(ctx, StateSynthesizing)
	result.Report = report
	result.enter(ctx, StateDone)
	return result
}

func (uc *UseCase) followUp(ctx context.Context, result *Result, mem *memory.Memory, ssn *model.ResearchSession) {
	result.enter(ctx, StateFollowUp)
	result.FollowUp = true
	result.Category = ssn.Category

	prompt, err := render(followUpPromptTmpl, map[string]any{
		"Subject":  ssn.Subject,
		"Context":  mem.GetResearchContext(),
		"Question": result.Query,
	})
	if err != nil {
		result.fail(ctx, err)
		return
	}

	answer := uc.llm.Generate(ctx, prompt)
	if err := mem.AddConversation(result.Query, answer); err != nil {
		result.fail(ctx, err)
		return
	}

	report, err := render(followUpReportTmpl, map[string]any{
		"Subject":  ssn.Subject,
		"Question": result.Query,
		"Answer":   answer,
	})
	if err != nil {
		result.fail(ctx, err)
		return
	}
	result.Report = report
	result.enter(ctx, StateDone)
}
