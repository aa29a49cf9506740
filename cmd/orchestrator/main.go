package main

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/roelfdiedericks/aiorchestrator/internal/config"
	apihttp "github.com/roelfdiedericks/aiorchestrator/internal/http"
	"github.com/roelfdiedericks/aiorchestrator/internal/llm"
	. "github.com/roelfdiedericks/aiorchestrator/internal/logging"
	"github.com/roelfdiedericks/aiorchestrator/internal/orchestrator"
	"github.com/roelfdiedericks/aiorchestrator/internal/paths"
)

const version = "0.1.0"

// Context is handed to every command's Run.
type Context struct {
	ConfigPath string
	Debug      bool
}

// load reads configuration and brings up logging from it.
func (c *Context) load() *config.Config {
	if c.ConfigPath == "" {
		found, err := paths.ConfigPath()
		if err != nil {
			L_warn("config lookup failed, using environment only", "error", err)
		}
		c.ConfigPath = found
	}

	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		L_fatal("failed to load config: %v", err)
	}

	level := ParseLevel(cfg.Logging.Level)
	if c.Debug {
		level = LevelDebug
	}
	Init(&LogConfig{Level: level, ShowCaller: cfg.Logging.ShowCaller || c.Debug})

	L_debug("config loaded", "path", c.ConfigPath, "providers", cfg.Summary())
	return cfg
}

type ServeCmd struct {
	Listen string `help:"Override server.listen" placeholder:"ADDR"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	cfg := ctx.load()
	if s.Listen != "" {
		cfg.Server.Listen = s.Listen
	}
	L_info("aiorchestrator %s starting", version)

	orch := orchestrator.FromConfig(cfg)
	if len(orch.Registry().Available()) == 0 {
		L_warn("no LLM provider configured; every generate request will fail")
	}

	srv, err := apihttp.NewServer(&apihttp.ServerConfig{
		Listen:       cfg.Server.Listen,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, orch)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Listen, err)
	}
	L_info("aiorchestrator ready", "addr", srv.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	L_info("received signal, shutting down", "signal", sig.String())

	return srv.Stop()
}

type GenerateCmd struct {
	Task      string   `help:"Task type (business, fast, vision, general, ...)" default:"general"`
	System    string   `help:"System instructions"`
	MaxTokens int      `help:"Maximum output tokens (0 = provider default)" name:"max-tokens"`
	Temp      float64  `help:"Sampling temperature, clamped to [0,1]; negative uses the default" default:"-1"`
	Verbose   bool     `help:"Print which provider served the request" short:"v"`
	Prompt    []string `arg:"" help:"Prompt text"`
}

func (g *GenerateCmd) Run(ctx *Context) error {
	orch := orchestrator.FromConfig(ctx.load())

	req := orchestrator.GenerateRequest{
		Prompt:             strings.Join(g.Prompt, " "),
		SystemInstructions: g.System,
		TaskType:           g.Task,
	}
	if g.MaxTokens > 0 {
		req.Options.MaxOutputTokens = llm.Int(g.MaxTokens)
	}
	if g.Temp >= 0 {
		req.Options.Temperature = llm.Float(g.Temp)
	}

	sctx, stop := signalContext()
	defer stop()
	res, err := orch.Generate(sctx, req)
	if err != nil {
		L_debug("generate failed", "error", err)
		return fmt.Errorf("%s", llm.UserMessage(err))
	}

	fmt.Println(res.Content)
	if g.Verbose {
		fmt.Fprintf(os.Stderr, "served by %s in %dms (failed over: %v)\n", res.ServedBy, res.ProcessingTimeMillis, res.FailedOver)
	}
	return nil
}

type EmbedCmd struct {
	Text []string `arg:"" help:"Text to embed"`
}

func (e *EmbedCmd) Run(ctx *Context) error {
	orch := orchestrator.FromConfig(ctx.load())

	sctx, stop := signalContext()
	defer stop()
	res, err := orch.EmbedDetailed(sctx, strings.Join(e.Text, " "))
	if err != nil {
		L_debug("embed failed", "error", err)
		return fmt.Errorf("%s", llm.UserMessage(err))
	}
	return printJSON(map[string]any{
		"servedBy":   res.ServedBy,
		"model":      res.Model,
		"dimensions": res.Dimensions,
		"embedding":  res.Vector,
	})
}

type HealthCmd struct {
	JSON bool `help:"Print as JSON" name:"json"`
}

func (h *HealthCmd) Run(ctx *Context) error {
	orch := orchestrator.FromConfig(ctx.load())
	sctx, stop := signalContext()
	defer stop()
	results := orch.HealthCheck(sctx)
	maps.Copy(results, orch.EmbeddingHealthCheck(sctx))

	if h.JSON {
		return printJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("no providers configured")
		return nil
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		status := "ok"
		if !results[name] {
			status = "FAIL"
		}
		fmt.Printf("%-28s %s\n", name, status)
	}
	return nil
}

type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" help:"Where to write the config file (default ~/.aiorchestrator/config.yaml)" type:"path"`
	Force bool   `help:"Overwrite an existing file"`
}

func (c *ConfigInitCmd) Run(ctx *Context) error {
	path := c.Path
	if path == "" {
		def, err := paths.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = def
	}
	if err := config.WriteFile(path, config.Default(), c.Force); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx *Context) error {
	return printJSON(ctx.load().Summary())
}

type VersionCmd struct{}

func (v *VersionCmd) Run(ctx *Context) error {
	fmt.Printf("aiorchestrator %s\n", version)
	return nil
}

var cli struct {
	Config string `help:"Path to YAML config file" short:"c" type:"path" env:"ORCHESTRATOR_CONFIG"`
	Debug  bool   `help:"Enable debug logging" short:"d"`

	Serve    ServeCmd    `cmd:"" help:"Run the HTTP API"`
	Generate GenerateCmd `cmd:"" help:"Generate a completion from the command line"`
	Embed    EmbedCmd    `cmd:"" help:"Embed text and print the vector as JSON"`
	Health   HealthCmd   `cmd:"" help:"Probe every configured provider"`
	ConfigC  struct {
		Init ConfigInitCmd `cmd:"" help:"Write a default config file"`
		Show ConfigShowCmd `cmd:"" help:"Show which providers are configured"`
	} `cmd:"" name:"config" help:"Config file helpers"`
	Version VersionCmd `cmd:"" help:"Print version"`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("aiorchestrator"),
		kong.Description("Multi-provider LLM orchestrator with fallback"),
		kong.UsageOnError(),
	)
	err := kctx.Run(&Context{ConfigPath: cli.Config, Debug: cli.Debug})
	kctx.FatalIfErrorf(err)
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
