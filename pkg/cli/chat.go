package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/memory"
	"github.com/m-mizutani/marten/pkg/model"
	"github.com/m-mizutani/marten/pkg/usecase/research"
	"github.com/urfave/cli/v3"
)

const (
	promptNew      = "Enter your product/market query (or 'quit' to exit): "
	promptFollowUp = "Ask follow-up question or 'exit' to start fresh: "
	separator      = "--------------------------------------------------"
)

type chatUseCase interface {
	AnalyzeQuery(ctx context.Context, id model.SessionID, query string) *research.Result
	ClearMemory(id model.SessionID)
	MemoryStatus(id model.SessionID) memory.Status
}

type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// chatLoop runs the interactive conversation of one session
type chatLoop struct {
	uc     chatUseCase
	id     model.SessionID
	in     lineReader
	out    io.Writer
	during func(fn func())
}

// Run reads lines until quit, EOF or interrupt
func (x *chatLoop) Run(ctx context.Context) error {
	for {
		fmt.Fprintln(x.out, separator)

		status := x.uc.MemoryStatus(x.id)
		if status.Active {
			fmt.Fprintf(x.out, "💭 %s\n", status)
			x.in.SetPrompt(promptFollowUp)
		} else {
			x.in.SetPrompt(promptNew)
		}

		line, err := x.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			fmt.Fprintln(x.out, "\nGoodbye!")
			return nil
		}
		if err != nil {
			return goerr.Wrap(err, "failed to read input")
		}

		if !x.handle(ctx, strings.TrimSpace(line), status.Active) {
			return nil
		}
	}
}

// handle processes one input line and reports whether the loop continues
func (x *chatLoop) handle(ctx context.Context, input string, active bool) bool {
	switch strings.ToLower(input) {
	case "quit", "q":
		fmt.Fprintln(x.out, "Goodbye!")
		return false
	case "exit":
		if !active {
			fmt.Fprintln(x.out, "Goodbye!")
			return false
		}
		x.uc.ClearMemory(x.id)
		fmt.Fprintln(x.out, "🔄 Memory cleared. Starting fresh research.")
		return true
	case "":
		fmt.Fprintln(x.out, "Please enter a valid query.")
		return true
	}

	var result *research.Result
	x.during(func() {
		result = x.uc.AnalyzeQuery(ctx, x.id, input)
	})

	fmt.Fprintln(x.out)
	fmt.Fprintln(x.out, result.Report)
	fmt.Fprintln(x.out)
	return true
}

func withSpinner(w io.Writer) func(fn func()) {
	return func(fn func()) {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
		s.Suffix = " researching..."
		s.Start()
		defer s.Stop()
		fn()
	}
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "marten", "history")
}

func chatCommand() *cli.Command {
	var (
		cfg     config
		session string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "session",
			Aliases:     []string{"s"},
			Usage:       "Session id of the conversation",
			Value:       string(model.DefaultSessionID),
			Sources:     cli.EnvVars("MARTEN_SESSION"),
			Destination: &session,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive research with follow-up questions",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = withLogger(ctx, &cfg)

			uc, _, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if hist := historyFile(); hist != "" {
				_ = os.MkdirAll(filepath.Dir(hist), 0o700)
			}
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          promptNew,
				HistoryFile:     historyFile(),
				InterruptPrompt: "^C",
				EOFPrompt:       "quit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintln(w, "=== Marten Research Assistant ===")
			fmt.Fprintln(w, "📈 Stocks · 📰 News · 🛍️  Products · 🤖 General")
			fmt.Fprintln(w)

			loop := &chatLoop{
				uc:     uc,
				id:     model.SessionID(session),
				in:     rl,
				out:    w,
				during: withSpinner(os.Stderr),
			}
			return loop.Run(ctx)
		},
	}
}
