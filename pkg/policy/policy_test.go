package policy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/policy"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "routing.rego"), []byte(body), 0644))
	return dir
}

func TestRouteOverride(t *testing.T) {
	ctx := context.Background()
	dir := writePolicy(t, `package routing

category := "STOCKS" if {
	contains(lower(input.query), "ipo")
}
`)

	engine, err := policy.New(ctx, dir)
	gt.NoError(t, err)
	gt.True(t, engine.Enabled())

	got, err := engine.Route(ctx, "Upcoming IPO calendar", model.CategoryNews)
	gt.NoError(t, err)
	gt.Equal(t, got, model.CategoryStocks)

	got, err = engine.Route(ctx, "Pixel 9 review", model.CategoryProduct)
	gt.NoError(t, err)
	gt.Equal(t, got, model.CategoryProduct)
}

func TestRouteUsesInputCategory(t *testing.T) {
	ctx := context.Background()
	dir := writePolicy(t, `package routing

category := "NEWS" if {
	input.category == "GENERAL"
	contains(input.query, "today")
}
`)

	engine, err := policy.New(ctx, dir)
	gt.NoError(t, err)

	got, err := engine.Route(ctx, "what happened today", model.CategoryGeneral)
	gt.NoError(t, err)
	gt.Equal(t, got, model.CategoryNews)
}

func TestRouteIgnoresUnknownCategory(t *testing.T) {
	ctx := context.Background()
	dir := writePolicy(t, `package routing

category := "WEATHER"
`)

	engine, err := policy.New(ctx, dir)
	gt.NoError(t, err)

	got, err := engine.Route(ctx, "rain tomorrow", model.CategoryGeneral)
	gt.NoError(t, err)
	gt.Equal(t, got, model.CategoryGeneral)
}

func TestNoPolicy(t *testing.T) {
	ctx := context.Background()

	for _, dir := range []string{"", t.TempDir()} {
		engine, err := policy.New(ctx, dir)
		gt.NoError(t, err)
		gt.False(t, engine.Enabled())

		got, err := engine.Route(ctx, "anything", model.CategoryNews)
		gt.NoError(t, err)
		gt.Equal(t, got, model.CategoryNews)
	}
}

func TestInvalidPolicy(t *testing.T) {
	dir := writePolicy(t, `package routing

category := if {`)

	_, err := policy.New(context.Background(), dir)
	gt.Error(t, err)
}
