package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/adapter"
	"github.com/m-mizutani/marten/pkg/collector"
	"github.com/m-mizutani/marten/pkg/collector/duckduckgo"
	"github.com/m-mizutani/marten/pkg/collector/newsdata"
	"github.com/m-mizutani/marten/pkg/collector/scrape"
	"github.com/m-mizutani/marten/pkg/collector/serpapi"
	"github.com/m-mizutani/marten/pkg/collector/yahoo"
	"github.com/m-mizutani/marten/pkg/interfaces"
	"github.com/m-mizutani/marten/pkg/llm"
	"github.com/m-mizutani/marten/pkg/memory"
	"github.com/m-mizutani/marten/pkg/policy"
	"github.com/m-mizutani/marten/pkg/service/mcp"
	"github.com/m-mizutani/marten/pkg/usecase/research"
	"github.com/m-mizutani/marten/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Global
	logLevel  string
	logFormat string
	profile   string

	// LLM
	geminiAPIKey    string
	geminiProject   string
	geminiLocation  string
	anthropicAPIKey string
	openaiAPIKey    string
	openaiBaseURL   string
	models          string
	llmTimeout      time.Duration

	// Collectors
	serpAPIKey     string
	newsDataAPIKey string
	httpTimeout    time.Duration
	browser        bool
	browserURL     string

	// Memory and routing
	sessionTTL time.Duration
	policyDir  string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("MARTEN_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("MARTEN_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "profile",
			Usage:       "Path to a YAML profile (models, tickers, MCP servers)",
			Sources:     cli.EnvVars("MARTEN_PROFILE"),
			Destination: &cfg.profile,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini Developer API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini on Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "Base URL of an OpenAI compatible endpoint",
			Sources:     cli.EnvVars("OPENAI_BASE_URL"),
			Destination: &cfg.openaiBaseURL,
		},
		&cli.StringFlag{
			Name:        "models",
			Usage:       "Ordered, comma separated model list such as gemini:gemini-2.5-flash,claude:claude-sonnet-4-5",
			Sources:     cli.EnvVars("MARTEN_MODELS"),
			Destination: &cfg.models,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Timeout of one model attempt",
			Value:       60 * time.Second,
			Sources:     cli.EnvVars("MARTEN_LLM_TIMEOUT"),
			Destination: &cfg.llmTimeout,
		},
	}
}

// collectorFlags returns flags for external data sources
func collectorFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "serp-api-key",
			Usage:       "SerpAPI key (web, video, shopping and news search)",
			Sources:     cli.EnvVars("SERP_API_KEY"),
			Destination: &cfg.serpAPIKey,
		},
		&cli.StringFlag{
			Name:        "newsdata-api-key",
			Usage:       "NewsData.io API key",
			Sources:     cli.EnvVars("NEWSDATA_API_KEY"),
			Destination: &cfg.newsDataAPIKey,
		},
		&cli.DurationFlag{
			Name:        "http-timeout",
			Usage:       "Timeout of one collector request",
			Value:       15 * time.Second,
			Sources:     cli.EnvVars("MARTEN_HTTP_TIMEOUT"),
			Destination: &cfg.httpTimeout,
		},
		&cli.BoolFlag{
			Name:        "browser",
			Usage:       "Render review pages with a headless browser",
			Sources:     cli.EnvVars("MARTEN_BROWSER"),
			Destination: &cfg.browser,
		},
		&cli.StringFlag{
			Name:        "browser-url",
			Usage:       "DevTools URL of a running browser; a local one is launched when empty",
			Sources:     cli.EnvVars("MARTEN_BROWSER_URL"),
			Destination: &cfg.browserURL,
		},
	}
}

// memoryFlags returns flags for session memory and routing
func memoryFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Idle time after which a research session is forgotten",
			Value:       time.Hour,
			Sources:     cli.EnvVars("MARTEN_SESSION_TTL"),
			Destination: &cfg.sessionTTL,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego routing policies (package routing)",
			Sources:     cli.EnvVars("MARTEN_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
	}
}

func allFlags(cfg *config) []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, globalFlags(cfg)...)
	flags = append(flags, llmFlags(cfg)...)
	flags = append(flags, collectorFlags(cfg)...)
	flags = append(flags, memoryFlags(cfg)...)
	return flags
}

// newLogger creates the process logger and installs it as default
func (cfg *config) newLogger() *slog.Logger {
	var opts []logging.Option
	if strings.EqualFold(cfg.logFormat, string(logging.FormatJSON)) {
		opts = append(opts, logging.WithFormat(logging.FormatJSON))
	}
	logger := logging.New(cfg.logLevel, os.Stderr, opts...)
	logging.SetDefault(logger)
	return logger
}

// modelList resolves the ordered model list: flag, then profile, then defaults
func (cfg *config) modelList(prof *profile) ([]llm.Model, error) {
	if cfg.models != "" {
		models, err := llm.ParseModels(cfg.models)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid --models")
		}
		return models, nil
	}
	if len(prof.Models) > 0 {
		models, err := llm.ParseModels(strings.Join(prof.Models, ","))
		if err != nil {
			return nil, goerr.Wrap(err, "invalid models in profile", goerr.V("profile", cfg.profile))
		}
		return models, nil
	}
	return llm.DefaultModels(), nil
}

// newLLM creates the model client. Providers without credentials are left
// out; the returned count tells how many providers are usable.
func (cfg *config) newLLM(ctx context.Context, prof *profile) (*llm.Client, int, error) {
	models, err := cfg.modelList(prof)
	if err != nil {
		return nil, 0, err
	}

	opts := []llm.Option{llm.WithTimeout(cfg.llmTimeout)}
	var configured int

	switch {
	case cfg.geminiAPIKey != "":
		gemini, err := adapter.NewGemini(ctx, adapter.WithGeminiAPIKey(cfg.geminiAPIKey))
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to create Gemini client")
		}
		opts = append(opts, llm.WithGenerator(llm.ProviderGemini, gemini))
		configured++
	case cfg.geminiProject != "":
		gemini, err := adapter.NewGemini(ctx, adapter.WithVertexAI(cfg.geminiProject, cfg.geminiLocation))
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to create Gemini client")
		}
		opts = append(opts, llm.WithGenerator(llm.ProviderGemini, gemini))
		configured++
	}

	if cfg.anthropicAPIKey != "" {
		opts = append(opts, llm.WithGenerator(llm.ProviderClaude, adapter.NewClaude(cfg.anthropicAPIKey)))
		configured++
	}

	if cfg.openaiAPIKey != "" {
		var oo []adapter.OpenAIOption
		if cfg.openaiBaseURL != "" {
			oo = append(oo, adapter.WithOpenAIBaseURL(cfg.openaiBaseURL))
		}
		opts = append(opts, llm.WithGenerator(llm.ProviderOpenAI, adapter.NewOpenAI(cfg.openaiAPIKey, oo...)))
		configured++
	}

	if configured == 0 {
		logging.From(ctx).Warn("no language model credentials, answers will use fallback text")
	}
	logging.From(ctx).Debug("language models", "models", models, "providers", configured)

	return llm.New(models, opts...), configured, nil
}

func (cfg *config) httpClient() *http.Client {
	return &http.Client{Timeout: cfg.httpTimeout}
}

func (cfg *config) newSerpAPI() *serpapi.Client {
	if cfg.serpAPIKey == "" {
		return nil
	}
	return serpapi.New(cfg.serpAPIKey, serpapi.WithHTTPClient(cfg.httpClient()))
}

// newSearchChain orders web search providers: SerpAPI when keyed,
// DuckDuckGo always, then MCP search tools from the profile.
func (cfg *config) newSearchChain(ctx context.Context, serp *serpapi.Client, prof *profile, mcpClient *mcp.Client) *collector.SearchChain {
	chain := collector.NewSearchChain()
	if serp != nil {
		chain.Add("serpapi", serp)
	}
	chain.Add("duckduckgo", duckduckgo.New(duckduckgo.WithHTTPClient(cfg.httpClient())))

	if mcpClient != nil {
		for _, srv := range prof.MCP.Servers {
			if srv.Tool == "" {
				continue
			}
			s, err := mcp.NewSearcher(mcpClient, srv)
			if err != nil {
				logging.From(ctx).Warn("skip MCP search provider", "server", srv.Name, "error", err)
				continue
			}
			chain.Add(s.Name(), s)
		}
	}
	return chain
}

// newNewsChain orders news providers: NewsData.io, then SerpAPI Google News
func (cfg *config) newNewsChain(serp *serpapi.Client) *collector.NewsChain {
	chain := collector.NewNewsChain()
	if cfg.newsDataAPIKey != "" {
		chain.Add("newsdata", newsdata.New(cfg.newsDataAPIKey, newsdata.WithHTTPClient(cfg.httpClient())))
	}
	if serp != nil {
		chain.Add("serpapi", serp)
	}
	return chain
}

type closer func()

// newFetcher returns the page fetcher and a func releasing it
func (cfg *config) newFetcher() (interfaces.PageFetcher, closer) {
	if !cfg.browser {
		return scrape.NewHTTP(scrape.WithHTTPClient(cfg.httpClient())), func() {}
	}

	var opts []scrape.BrowserOption
	if cfg.browserURL != "" {
		opts = append(opts, scrape.WithControlURL(cfg.browserURL))
	}
	b := scrape.NewBrowser(opts...)
	return b, func() { _ = b.Close() }
}

// newUseCase wires every collector into the orchestrator. The returned
// closer releases the browser and MCP sessions.
func (cfg *config) newUseCase(ctx context.Context) (*research.UseCase, int, closer, error) {
	prof, err := loadProfile(cfg.profile)
	if err != nil {
		return nil, 0, nil, err
	}

	client, providers, err := cfg.newLLM(ctx, prof)
	if err != nil {
		return nil, 0, nil, err
	}

	engine, err := policy.New(ctx, cfg.policyDir)
	if err != nil {
		return nil, 0, nil, err
	}

	mcpClient := mcp.ConnectAll(ctx, prof.MCP.Servers)
	fetcher, closeFetcher := cfg.newFetcher()
	cleanup := func() {
		closeFetcher()
		if mcpClient != nil {
			if err := mcpClient.Close(); err != nil {
				logging.From(ctx).Warn("failed to close MCP sessions", "error", err)
			}
		}
	}

	serp := cfg.newSerpAPI()
	opts := []research.Option{
		research.WithSearcher(cfg.newSearchChain(ctx, serp, prof, mcpClient)),
		research.WithQuoteSource(yahoo.New(yahoo.WithHTTPClient(cfg.httpClient()))),
		research.WithPageFetcher(fetcher),
		research.WithMemory(memory.New(cfg.sessionTTL)),
		research.WithPolicy(engine),
		research.WithTickers(prof.Tickers),
	}
	if news := cfg.newNewsChain(serp); news.Len() > 0 {
		opts = append(opts, research.WithNewsSource(news))
	}
	if serp != nil {
		opts = append(opts, research.WithVideoSource(serp), research.WithShopper(serp))
	} else {
		logging.From(ctx).Info("no SerpAPI key, video reviews and shopping offers are disabled")
	}

	uc, err := research.New(client, opts...)
	if err != nil {
		cleanup()
		return nil, 0, nil, err
	}

	logging.From(ctx).Debug("orchestrator ready", "sources", uc.Sources())
	return uc, providers, cleanup, nil
}
