package mcp

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/marten/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

const (
	implName    = "marten"
	implVersion = "0.1.0"
)

// Client holds sessions to remote MCP servers
type Client struct {
	mu      sync.RWMutex
	servers map[string]*remote
}

type remote struct {
	session *mcp.ClientSession
	tools   []*mcp.Tool
}

// ServerConfig describes one MCP server. Tool and QueryArg select the tool
// used as a web search provider; servers without Tool are connected but not
// used for search.
type ServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "stdio" or "http"
	Command   []string          `yaml:"command"`
	URL       string            `yaml:"url"`
	Env       map[string]string `yaml:"env"`
	Tool      string            `yaml:"tool"`
	QueryArg  string            `yaml:"query_arg"`
	LimitArg  string            `yaml:"limit_arg"`
}

// Config is the layout of a standalone MCP configuration file
type Config struct {
	Servers []ServerConfig `yaml:"servers"`
}

// LoadConfig reads a YAML file holding a servers list
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read MCP config file", goerr.V("path", path))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse MCP config file", goerr.V("path", path))
	}
	return &cfg, nil
}

func NewClient() *Client {
	return &Client{servers: make(map[string]*remote)}
}

// Connect opens a session to the server and caches its tool list
func (c *Client) Connect(ctx context.Context, cfg ServerConfig) error {
	c.mu.RLock()
	_, exists := c.servers[cfg.Name]
	c.mu.RUnlock()
	if exists {
		return goerr.New("server already connected", goerr.V("name", cfg.Name))
	}

	var transport mcp.Transport
	switch cfg.Transport {
	case "stdio":
		if len(cfg.Command) == 0 {
			return goerr.New("command is required for stdio transport", goerr.V("server", cfg.Name))
		}
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		if len(cfg.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range cfg.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		transport = &mcp.CommandTransport{Command: cmd}

	case "http":
		if cfg.URL == "" {
			return goerr.New("url is required for http transport", goerr.V("server", cfg.Name))
		}
		transport = &mcp.StreamableClientTransport{Endpoint: cfg.URL}

	default:
		return goerr.New("unsupported transport",
			goerr.V("transport", cfg.Transport),
			goerr.V("supported", []string{"stdio", "http"}))
	}

	client := mcp.NewClient(&mcp.Implementation{Name: implName, Version: implVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to connect to MCP server", goerr.V("server", cfg.Name))
	}

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		_ = session.Close()
		return goerr.Wrap(err, "failed to list tools", goerr.V("server", cfg.Name))
	}

	c.mu.Lock()
	c.servers[cfg.Name] = &remote{session: session, tools: tools.Tools}
	c.mu.Unlock()

	logging.From(ctx).Info("connected to MCP server", "server", cfg.Name, "tools", len(tools.Tools))
	return nil
}

// ConnectAll connects every configured server. Servers that fail are logged
// and skipped; a nil client is returned when none connected.
func ConnectAll(ctx context.Context, cfgs []ServerConfig) *Client {
	if len(cfgs) == 0 {
		return nil
	}

	client := NewClient()
	for _, cfg := range cfgs {
		if err := client.Connect(ctx, cfg); err != nil {
			logging.From(ctx).Warn("failed to connect to MCP server", "server", cfg.Name, "error", err)
		}
	}

	if len(client.Servers()) == 0 {
		logging.From(ctx).Warn("no MCP servers connected", "configured", len(cfgs))
		return nil
	}
	return client
}

// Tools returns the tools advertised by a connected server
func (c *Client) Tools(name string) ([]*mcp.Tool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	srv, ok := c.servers[name]
	if !ok {
		return nil, goerr.New("server not found", goerr.V("name", name))
	}
	return srv.tools, nil
}

// Servers returns connected server names in sorted order
func (c *Client) Servers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.servers))
	for name := range c.servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Client) CallTool(ctx context.Context, server, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	c.mu.RLock()
	srv, ok := c.servers[server]
	c.mu.RUnlock()
	if !ok {
		return nil, goerr.New("server not found", goerr.V("name", server))
	}

	result, err := srv.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call tool",
			goerr.V("server", server),
			goerr.V("tool", tool))
	}
	return result, nil
}

// Close closes every session and forgets the servers
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, srv := range c.servers {
		if err := srv.session.Close(); err != nil {
			errs = append(errs, goerr.Wrap(err, "failed to close session", goerr.V("server", name)))
		}
	}
	c.servers = make(map[string]*remote)
	return errors.Join(errs...)
}
