package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	server "github.com/m-mizutani/marten/pkg/controller/http"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/service/mcp"
	"github.com/m-mizutani/marten/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "marten",
		Usage: "Multi-source research assistant for stocks, news and products",
		Commands: []*cli.Command{
			chatCommand(),
			analyzeCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func withLogger(ctx context.Context, cfg *config) context.Context {
	return logging.With(ctx, cfg.newLogger())
}

func analyzeCommand() *cli.Command {
	var (
		cfg     config
		session string
		asJSON  bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Session id; reuse it to ask follow-up questions within one process",
			Value:       string(model.DefaultSessionID),
			Destination: &session,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the result as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:      "analyze",
		Usage:     "Answer a single query and exit",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = withLogger(ctx, &cfg)

			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query is required")
			}

			uc, _, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result := uc.AnalyzeQuery(ctx, model.SessionID(session), query)

			w := c.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return goerr.Wrap(err, "failed to encode result")
				}
			} else {
				fmt.Fprintln(w, result.Report)
			}

			if result.Err != nil {
				return goerr.Wrap(result.Err, "query failed", goerr.V("query", query))
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	var (
		cfg     config
		addr    string
		origins string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":5000",
			Sources:     cli.EnvVars("MARTEN_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "allow-origins",
			Usage:       "CORS allowed origins",
			Value:       "*",
			Sources:     cli.EnvVars("MARTEN_ALLOW_ORIGINS"),
			Destination: &origins,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the research API over HTTP",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = withLogger(ctx, &cfg)
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			uc, providers, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			// Without any model the API answers with demo responses
			var backend server.UseCase = uc
			if providers == 0 {
				logging.From(ctx).Warn("running in demo mode, configure a model API key for full functionality")
				backend = nil
			}

			return server.New(backend, server.WithAllowOrigins(origins)).Run(ctx, addr)
		},
	}
}

func mcpCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the research tools as an MCP server over stdio",
		Flags: allFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = withLogger(ctx, &cfg)

			uc, _, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			return mcp.NewServer(uc).Run(ctx)
		},
	}
}
