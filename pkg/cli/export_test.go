package cli

import (
	"context"
	"io"

	"github.com/m-mizutani/marten/pkg/llm"
	"github.com/m-mizutani/marten/pkg/model"
)

type LineReader = lineReader
type ChatUseCase = chatUseCase

func RunChatForTest(ctx context.Context, uc ChatUseCase, id model.SessionID, in LineReader, out io.Writer) error {
	loop := &chatLoop{
		uc:     uc,
		id:     id,
		in:     in,
		out:    out,
		during: func(fn func()) { fn() },
	}
	return loop.Run(ctx)
}

func ProfileForTest(path string) ([]string, map[string]string, int, error) {
	prof, err := loadProfile(path)
	if err != nil {
		return nil, nil, 0, err
	}
	return prof.Models, prof.Tickers, len(prof.MCP.Servers), nil
}

func ModelListForTest(models, profilePath string) ([]llm.Model, error) {
	prof, err := loadProfile(profilePath)
	if err != nil {
		return nil, err
	}
	cfg := &config{models: models, profile: profilePath}
	return cfg.modelList(prof)
}
