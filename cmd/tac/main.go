// Package main is the entry point for tac's CLI surface (§6.7).
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	agentkitllm "github.com/vinayprograms/agentkit/llm"
	"github.com/vinayprograms/tac/internal/blockexecutor"
	"github.com/vinayprograms/tac/internal/codingagent"
	"github.com/vinayprograms/tac/internal/config"
	"github.com/vinayprograms/tac/internal/erroranalyzer"
	"github.com/vinayprograms/tac/internal/eventbus"
	"github.com/vinayprograms/tac/internal/generator"
	"github.com/vinayprograms/tac/internal/indexer"
	"github.com/vinayprograms/tac/internal/llm"
	"github.com/vinayprograms/tac/internal/mcpclient"
	"github.com/vinayprograms/tac/internal/orchestrator"
	"github.com/vinayprograms/tac/internal/processor"
	"github.com/vinayprograms/tac/internal/protoblock"
	"github.com/vinayprograms/tac/internal/sessionlog"
	"github.com/vinayprograms/tac/internal/telemetry"
	"github.com/vinayprograms/tac/internal/testrunner"
	"github.com/vinayprograms/tac/internal/trusty"
	"github.com/vinayprograms/tac/internal/trustyagents"
	"github.com/vinayprograms/tac/internal/vcs"
	"github.com/vinayprograms/tac/internal/visualagent"
)

var (
	version = "dev"
	commit  = "unknown"
)

func init() {
	_ = godotenv.Load()
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "make":
		err = runMake(args)
	case "version":
		fmt.Printf("tac version %s (commit: %s)\n", version, commit)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "tac: "+err.Error())
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tac - autonomous code-modification orchestrator

Usage:
  tac make <instructions...>        run the full lifecycle for a task
  tac make --json <file>            load and execute a pinned protoblock
  tac make --no-git <instructions>  disable VCS operations
  tac version
  tac help`)
}

type makeOptions struct {
	jsonFile     string
	noGit        bool
	instructions string
}

func parseMakeArgs(args []string) (makeOptions, error) {
	var opts makeOptions
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--json requires a file path")
			}
			i++
			opts.jsonFile = args[i]
		case "--no-git":
			opts.noGit = true
		default:
			rest = append(rest, args[i])
		}
	}
	opts.instructions = strings.Join(rest, " ")
	if opts.jsonFile == "" && opts.instructions == "" {
		return opts, fmt.Errorf("usage: tac make <instructions...> (or --json <file>)")
	}
	return opts, nil
}

// checkNoGitCompatibility enforces §6.7: --no-git is incompatible with the
// plausibility agent, since plausibility grades a diff that never existed
// without VCS.
func checkNoGitCompatibility(cfg *config.Config) error {
	if !cfg.Git.NoGit {
		return nil
	}
	for _, name := range cfg.TrustyAgents.Default {
		if name == "plausibility" {
			return fmt.Errorf("--no-git is incompatible with the plausibility trusty agent; remove it from trusty_agents.default or drop --no-git")
		}
	}
	return nil
}

func runMake(args []string) error {
	opts, err := parseMakeArgs(args)
	if err != nil {
		return err
	}

	cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	if opts.noGit {
		cfg.Git.NoGit = true
	}

	if err := checkNoGitCompatibility(cfg); err != nil {
		return err
	}

	ctx := context.Background()

	env, err := buildEnvironment(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	if opts.jsonFile != "" {
		pb, err := protoblock.LoadFromJSON(opts.jsonFile)
		if err != nil {
			return fmt.Errorf("failed to load pinned protoblock: %w", err)
		}
		ok, err := runPinnedBlock(ctx, env, pb)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("pinned block failed its trusty agents")
		}
		return nil
	}

	summary, err := env.Indexer.ToGeneratorSummary()
	if err != nil {
		return fmt.Errorf("failed to load codebase summary: %w", err)
	}

	ok, err := env.Orchestrator.Execute(ctx, opts.instructions, summary)
	if err != nil {
		return fmt.Errorf("orchestrator failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("task did not complete successfully")
	}
	return nil
}

// runPinnedBlock executes a single pre-authored protoblock directly
// through a BlockExecutor, bypassing ProtoBlockGenerator entirely —
// `tac make --json` pins the block rather than generating it (§6.7).
func runPinnedBlock(ctx context.Context, env *environment, pb *protoblock.ProtoBlock) (bool, error) {
	env.Executor.NewAttempt()
	if err := env.Executor.CaptureBeforeState(ctx, pb); err != nil {
		return false, fmt.Errorf("failed to capture before-state: %w", err)
	}
	result, err := env.Executor.ExecuteBlock(ctx, pb, "")
	if err != nil {
		return false, err
	}
	if result.Success {
		if _, err := env.VCS.Commit(ctx, pb.CommitMessage, nil); err != nil {
			return false, fmt.Errorf("failed to commit pinned block: %w", err)
		}
	}
	return result.Success, env.Store.Save(pb)
}

// environment bundles every capability wired together from config, so
// main's two entry points (the generator-driven path and the pinned-
// protoblock path) share one construction routine.
type environment struct {
	Config       *config.Config
	VCS          vcs.VCS
	Indexer      *indexer.Indexer
	Executor     *blockexecutor.Executor
	Orchestrator *orchestrator.Orchestrator
	Store        *protoblock.Store
	Bus          *eventbus.Bus
	SessionLog   *sessionlog.Log
	Tracer       *telemetry.Tracer
	MCPClient    *mcpclient.Client
}

func (e *environment) Close() {
	e.Indexer.Close()
	e.Bus.Close()
	if e.SessionLog != nil {
		e.SessionLog.Close()
	}
	if e.Tracer != nil {
		_ = e.Tracer.Shutdown(context.Background())
	}
	if e.MCPClient != nil {
		_ = e.MCPClient.Close()
	}
}

func loadProjectConfig() (*config.Config, error) {
	const path = "tac.toml"
	if _, err := os.Stat(path); err != nil {
		return config.New(), nil
	}
	return config.LoadFile(path)
}

func buildEnvironment(ctx context.Context, cfg *config.Config) (*environment, error) {
	root, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	bus, err := eventbus.New(eventbus.Config{NATSURL: cfg.EventBus.NATSURL, Subject: cfg.EventBus.Subject})
	if err != nil {
		return nil, fmt.Errorf("failed to start event bus: %w", err)
	}

	// Every progress event is also appended to a per-run forensic log
	// that cmd/tac-watch tails live and cmd/tac-status reads the tail of.
	sessLog, err := sessionlog.Open(filepath.Join(root, cfg.Storage.Path, "session.jsonl"))
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}
	bus.Subscribe(func(ev eventbus.Event) {
		_ = sessLog.Append(sessionlog.Event{Phase: ev.Phase, Message: ev.Message, Timestamp: ev.Timestamp})
	})

	var vehicle vcs.VCS
	if cfg.Git.NoGit {
		vehicle = vcs.NoOp{}
	} else {
		git, err := vcs.NewGit(ctx, root, cfg.Git.BaseBranch)
		if err != nil {
			bus.Close()
			sessLog.Close()
			return nil, fmt.Errorf("failed to initialize git VCS: %w", err)
		}
		vehicle = git
	}

	analysisProvider, err := llm.NewProvider(cfg.LLM.Provider, cfg.LLM.Model, os.Getenv(cfg.LLM.APIKeyEnv), cfg.LLM.MaxTokens, cfg.LLM.BaseURL, cfg.LLM.Thinking, cfg.LLM.MaxRetries, cfg.LLM.RetryBackoff)
	if err != nil {
		bus.Close()
		sessLog.Close()
		return nil, fmt.Errorf("failed to build analysis LLM provider: %w", err)
	}

	codingInner, err := agentkitllm.NewProvider(agentkitllm.ProviderConfig{
		Provider:  cfg.CodingLLM.Provider,
		Model:     cfg.CodingLLM.Model,
		APIKey:    os.Getenv(cfg.CodingLLM.APIKeyEnv),
		MaxTokens: cfg.CodingLLM.MaxTokens,
	})
	if err != nil {
		bus.Close()
		sessLog.Close()
		return nil, fmt.Errorf("failed to build coding-agent LLM provider: %w", err)
	}

	ix, err := indexer.New(indexer.Config{
		Root:             root,
		IndexPath:        cfg.Indexer.Path,
		CachePath:        cfg.Indexer.CachePath,
		RespectGitignore: true,
		MaxFileBytes:     cfg.Indexer.MaxFileSize,
		Summarizer:       &indexer.LLMSummarizer{Provider: analysisProvider},
	})
	if err != nil {
		bus.Close()
		sessLog.Close()
		return nil, fmt.Errorf("failed to open project indexer: %w", err)
	}
	if err := ix.RefreshIndex(ctx, func(done, total int, relpath string) {
		bus.OnProgress("index", fmt.Sprintf("%d/%d %s", done, total, relpath))
	}); err != nil {
		ix.Close()
		bus.Close()
		sessLog.Close()
		return nil, fmt.Errorf("failed to refresh project index: %w", err)
	}
	if cfg.Indexer.Watch {
		go ix.Watch(ctx, func(relpath string) { bus.OnProgress("index_watch", relpath) })
	}

	tracer, err := telemetry.New(cfg.Project.Name, cfg.Telemetry.Enabled, cfg.Telemetry.Endpoint, cfg.Telemetry.Protocol)
	if err != nil {
		ix.Close()
		bus.Close()
		sessLog.Close()
		return nil, fmt.Errorf("failed to start telemetry: %w", err)
	}

	registry := trusty.NewRegistry(func(msg string) { bus.OnProgress("registry_warning", msg) })
	trustyagents.RegisterPytest(registry, func() testrunner.Runner {
		return testrunner.NewPytestRunner(cfg.TrustyAgents.PytestArgs, time.Duration(cfg.TrustyAgents.PytestTimeoutSeconds)*time.Second)
	}, root)
	trustyagents.RegisterCodeReviewer(registry, analysisProvider, cfg.TrustyAgents.MinCodeReviewGrade)
	trustyagents.RegisterPlausibility(registry, analysisProvider, cfg.TrustyAgents.MinPlausibilityStars)
	trustyagents.RegisterPexpect(registry)

	if visionProvider, ok := analysisProvider.(llm.VisionProvider); ok {
		visualagent.RegisterAll(registry, visualagent.NewStructuralCapturer(), visionProvider, cfg.TrustyAgents.MinWebGrade)
	}

	mcpClient := mcpclient.New(func(msg string) { bus.OnProgress("mcp_warning", msg) })
	if err := mcpClient.Connect(ctx, cfg.MCP); err != nil {
		ix.Close()
		bus.Close()
		sessLog.Close()
		return nil, fmt.Errorf("failed to connect to mcp servers: %w", err)
	}
	trustyagents.RegisterMCPTools(registry, mcpClient)

	agent := codingagent.New(codingInner, root)

	var snapshotter blockexecutor.Snapshotter
	executor := blockexecutor.New(agent, registry, vehicle, snapshotter)

	store, err := protoblock.NewStore(filepath.Join(root, cfg.Storage.Path))
	if err != nil {
		ix.Close()
		bus.Close()
		sessLog.Close()
		return nil, fmt.Errorf("failed to open protoblock store: %w", err)
	}

	gen := generator.New(analysisProvider, registry)
	analyzer := erroranalyzer.New(analysisProvider)

	newProcessor := func() *processor.Processor {
		return &processor.Processor{
			Generator:     gen,
			Executor:      executor,
			ErrorAnalyzer: analyzer,
			VCS:           vehicle,
			MaxRetries:    cfg.Project.MaxRetries,
			HaltAfterFail: cfg.Project.HaltAfterFail,
			OnProgress:    bus.OnProgress,
			Tracer:        tracer,
		}
	}

	orch := &orchestrator.Orchestrator{
		Provider: analysisProvider,
		VCS:      vehicle,
		Codebase: generatorRefresher{indexer: ix},
		NewProcessor: newProcessor,
		OnProgress:   bus.OnProgress,
		Tracer:       tracer,
	}

	return &environment{
		Config:       cfg,
		VCS:          vehicle,
		Indexer:      ix,
		Executor:     executor,
		Orchestrator: orch,
		Store:        store,
		Bus:          bus,
		SessionLog:   sessLog,
		Tracer:       tracer,
		MCPClient:    mcpClient,
	}, nil
}

// generatorRefresher adapts Indexer to orchestrator.CodebaseRefresher,
// re-running refresh_index between chunks since each chunk's commits
// alter the codebase (§4.4).
type generatorRefresher struct {
	indexer *indexer.Indexer
}

func (r generatorRefresher) Refresh(ctx context.Context) (generator.CodebaseSummary, error) {
	if err := r.indexer.RefreshIndex(ctx, nil); err != nil {
		return nil, err
	}
	return r.indexer.ToGeneratorSummary()
}
