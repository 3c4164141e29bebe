package policy

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

const routingQuery = "data.routing"

// printHook forwards Rego print() output to the context logger
type printHook struct {
	ctx context.Context
}

func (h *printHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego print", "message", message)
	return nil
}

// Engine evaluates the routing policy. A policy in package routing may set
// `category` to replace the category chosen by the classifier:
//
//	package routing
//
//	category := "STOCKS" if {
//		contains(lower(input.query), "ipo")
//	}
type Engine struct {
	routing *rego.PreparedEvalQuery
}

// New loads policies from policyDir. An empty policyDir, or one without
// .rego files, yields an Engine that never overrides.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	if policyDir == "" {
		return &Engine{}, nil
	}

	modules, err := loadModules(policyDir)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return &Engine{}, nil
	}

	routing, err := prepareQuery(ctx, modules, routingQuery)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare routing policy")
	}
	return &Engine{routing: routing}, nil
}

func (e *Engine) Enabled() bool {
	return e != nil && e.routing != nil
}

// Route returns the category to dispatch query to. The classifier's
// category is kept when the policy is absent or gives no valid category.
func (e *Engine) Route(ctx context.Context, query string, category model.Category) (model.Category, error) {
	if !e.Enabled() {
		return category, nil
	}

	input := map[string]any{
		"query":    query,
		"category": category.String(),
	}
	rs, err := e.routing.Eval(ctx, rego.EvalInput(input), rego.EvalPrintHook(&printHook{ctx: ctx}))
	if err != nil {
		return category, goerr.Wrap(err, "failed to evaluate routing policy", goerr.V("query", query))
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return category, nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return category, nil
	}
	raw, ok := data["category"].(string)
	if !ok || raw == "" {
		return category, nil
	}

	override, err := model.ParseCategory(raw)
	if err != nil {
		logging.From(ctx).Warn("routing policy returned unknown category", "category", raw)
		return category, nil
	}
	if override != category {
		logging.From(ctx).Info("routing policy overrides category", "from", category, "to", override)
	}
	return override, nil
}
