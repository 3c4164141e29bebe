package cli

import (
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/service/mcp"
	"gopkg.in/yaml.v3"
)

// profile is the optional YAML file given by --profile
type profile struct {
	Models  []string          `yaml:"models"`
	Tickers map[string]string `yaml:"tickers"`
	MCP     mcp.Config        `yaml:"mcp"`
}

// loadProfile reads path. An empty path yields an empty profile.
func loadProfile(path string) (*profile, error) {
	var prof profile
	if path == "" {
		return &prof, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read profile", goerr.V("path", path))
	}
	if err := yaml.Unmarshal(data, &prof); err != nil {
		return nil, goerr.Wrap(err, "failed to parse profile", goerr.V("path", path))
	}

	tickers := make(map[string]string, len(prof.Tickers))
	for name, symbol := range prof.Tickers {
		name = strings.ToLower(strings.TrimSpace(name))
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if name == "" || symbol == "" {
			return nil, goerr.New("empty ticker entry in profile", goerr.V("path", path))
		}
		tickers[name] = symbol
	}
	prof.Tickers = tickers

	for _, srv := range prof.MCP.Servers {
		if srv.Name == "" {
			return nil, goerr.New("MCP server without name in profile", goerr.V("path", path))
		}
	}

	return &prof, nil
}
