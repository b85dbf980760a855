// Command quarry ingests documentation repositories into a vector store and
// answers questions about them over a retrieval-augmented chat loop.
//
// Usage:
//
//	quarry populate [-config quarry.toml]
//	quarry chat     [-config quarry.toml] [-session NAME]
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	quarry "github.com/quarryhq/quarry"
	"github.com/quarryhq/quarry/ingest"
	"github.com/quarryhq/quarry/internal/config"
	"github.com/quarryhq/quarry/internal/history"
	"github.com/quarryhq/quarry/observer"
	"github.com/quarryhq/quarry/provider/openaicompat"
	"github.com/quarryhq/quarry/store/postgres"
	"github.com/quarryhq/quarry/store/sqlite"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[quarry] ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "populate":
		if err := runPopulate(args); err != nil {
			log.Fatal(err)
		}
	case "chat":
		if err := runChat(args); err != nil {
			log.Fatal(err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: quarry <populate|chat> [flags]")
}

// deps is everything a subcommand needs, wired from one Config.
type deps struct {
	cfg       config.Config
	logger    *slog.Logger
	store     quarry.VectorStore
	embedding quarry.EmbeddingProvider
	llm       quarry.CompletionProvider
	inst      *observer.Instruments
	shutdown  func(context.Context) error
}

func setup(ctx context.Context, configPath string) (*deps, error) {
	cfg := config.Load(configPath)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	d := &deps{cfg: cfg, logger: logger, shutdown: func(context.Context) error { return nil }}

	if cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx)
		if err != nil {
			return nil, fmt.Errorf("init observer: %w", err)
		}
		d.inst = inst
		d.shutdown = shutdown
	}

	emb := openaicompat.NewEmbedding(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL)
	if cfg.Embedding.Dimensions > 0 {
		emb.SetDimensions(cfg.Embedding.Dimensions)
	}
	d.embedding = quarry.WithEmbeddingRetry(emb, quarry.RetryLogger(logger))
	if d.inst != nil {
		d.embedding = observer.WrapEmbedding(d.embedding, cfg.Embedding.Model, d.inst)
	}

	llm := openaicompat.NewCompletion(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	d.llm = quarry.WithCompletionRetry(llm, quarry.RetryLogger(logger))
	if d.inst != nil {
		d.llm = observer.WrapCompletion(d.llm, cfg.LLM.Model, d.inst)
	}

	switch cfg.Store.Backend {
	case "sqlite":
		d.store = sqlite.New(cfg.Store.Path, sqlite.WithLogger(logger))
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.store = postgres.New(pool, postgres.WithEmbeddingDimension(d.embedding.Dimensions()))
	}

	if err := d.store.Init(ctx); err != nil {
		d.store.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	return d, nil
}

func (d *deps) close(ctx context.Context) {
	if err := d.store.Close(); err != nil {
		d.logger.Error("close store", "error", err)
	}
	if err := d.shutdown(ctx); err != nil {
		d.logger.Error("shutdown observer", "error", err)
	}
}

func runPopulate(args []string) error {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("QUARRY_CONFIG"), "path to quarry.toml")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer d.close(context.Background())

	desc, err := d.cfg.Descriptor()
	if err != nil {
		return err
	}

	if len(d.cfg.Repos) == 0 {
		return fmt.Errorf("no repos configured; add [[repos]] entries to the config")
	}
	var sources []ingest.Source
	for _, repo := range d.cfg.Repos {
		var opts []ingest.RepoOption
		if repo.Internal {
			opts = append(opts, ingest.RepoInternalOnly())
		}
		if len(d.cfg.Ingest.AllowedExtensions) > 0 {
			opts = append(opts, ingest.RepoAllowedExtensions(d.cfg.Ingest.AllowedExtensions...))
		}
		if len(d.cfg.Ingest.DisallowedFilenames) > 0 {
			opts = append(opts, ingest.RepoDisallowedNames(d.cfg.Ingest.DisallowedFilenames...))
		}
		sources = append(sources, ingest.NewRepoSource(repo.Path, opts...))
	}

	pipeline := ingest.NewPipeline(d.store, d.embedding,
		ingest.PipelineBatchSize(d.cfg.Ingest.BatchSize),
		ingest.PipelineLogger(d.logger))

	report, err := pipeline.Populate(ctx, sources, desc)
	if err != nil {
		return err
	}

	fmt.Printf("strategy:        %s\n", report.Strategy)
	fmt.Printf("documents:       %d (%d skipped)\n", report.DocsProcessed, len(report.Skipped))
	fmt.Printf("chunks written:  %d in %d batches (%d failed)\n",
		report.ChunksWritten, report.BatchesWritten, report.FailedBatches)
	fmt.Printf("elapsed:         %s\n", report.Elapsed)
	for _, s := range report.Skipped {
		fmt.Printf("skipped: %s (%s)\n", s.Path, s.Reason)
	}
	if report.FailedBatches > 0 {
		return fmt.Errorf("%d batches failed; rerun populate to fill the gaps", report.FailedBatches)
	}
	return nil
}

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("QUARRY_CONFIG"), "path to quarry.toml")
	sessionID := fs.String("session", "default", "session name; transcripts persist per session")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx, *configPath)
	if err != nil {
		return err
	}
	defer d.close(context.Background())

	desc, err := d.cfg.Descriptor()
	if err != nil {
		return err
	}
	metric, err := d.cfg.Metric()
	if err != nil {
		return err
	}

	var retriever quarry.Retriever = quarry.NewEngine(d.store, d.embedding, quarry.EngineLogger(d.logger))
	if d.inst != nil {
		retriever = observer.WrapRetriever(retriever, d.inst)
	}

	transcripts, err := history.NewFileStore(d.cfg.Chat.HistoryDir)
	if err != nil {
		return err
	}

	mgr := quarry.NewSessionManager(retriever, d.llm, desc,
		quarry.SessionScope(d.cfg.Scope()),
		quarry.SessionTopK(d.cfg.Retrieval.TopK),
		quarry.SessionMetric(metric),
		quarry.SessionHistory(transcripts),
		quarry.SessionHistoryBudget(d.cfg.Chat.HistoryBudget),
		quarry.SessionLogger(d.logger))

	session := mgr.Session(*sessionID)
	if prior := session.Turns(); len(prior) > 0 {
		fmt.Printf("resumed session %q with %d prior turns\n", *sessionID, len(prior))
	}

	fmt.Println("quarry chat; :reset starts over, :quit exits")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ":quit", line == ":q":
			return scanner.Err()
		case line == ":reset":
			mgr.Reset(*sessionID)
			if err := transcripts.Reset(*sessionID); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			session = mgr.Session(*sessionID)
			fmt.Println("session reset")
			continue
		}

		turn, err := session.Ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(turn.Response)
	}
	return scanner.Err()
}
