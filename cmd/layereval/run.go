package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/evaluation/cache"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/report"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/significance"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/tracing"
)

type runFlags struct {
	corpusPath string
	qrelsPath  string
	outputDir  string
	runID      string
	store      bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an evaluation and write report tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx, cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.corpusPath, "corpus", "", "JSON file with document and query vectors")
	cmd.Flags().StringVar(&f.qrelsPath, "qrels", "", "relevance judgments (TREC qrels or .json)")
	cmd.Flags().StringVarP(&f.outputDir, "output", "o", "", "report directory (overrides report.outputDir)")
	cmd.Flags().StringVar(&f.runID, "run-id", "", "identifier attached to logs and stored runs")
	cmd.Flags().BoolVar(&f.store, "store", false, "save the run summary to PostgreSQL")
	_ = cmd.MarkFlagRequired("corpus")
	_ = cmd.MarkFlagRequired("qrels")
	return cmd
}

func (a *app) run(ctx context.Context, cmd *cobra.Command, f *runFlags) error {
	cfg := a.cfg
	if f.runID == "" {
		f.runID = "run-" + time.Now().UTC().Format("20060102T150405Z")
	}
	ctx = logger.WithRunID(ctx, f.runID)
	log := logger.FromContext(ctx)
	ctx, span := tracing.Start(ctx, "run", f.runID)
	defer func() {
		span.End()
		span.Log(log)
	}()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	checker := health.NewChecker(5 * time.Second)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg, checker.ReadyHandler())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	_, loadSpan := tracing.StartChild(ctx, "load")
	c, err := corpus.Load(f.corpusPath)
	if err != nil {
		return err
	}
	judgments, err := corpus.LoadJudgments(f.qrelsPath)
	if err != nil {
		return err
	}
	idx := index.NewMemoryIndex()
	if err := c.IndexInto(idx); err != nil {
		return err
	}
	loadSpan.SetAttr("documents", idx.NumDocuments())
	loadSpan.End()
	log.Info("corpus loaded",
		"documents", idx.NumDocuments(),
		"queries", len(c.Queries),
		"judged_queries", len(judgments),
	)

	var docs evaluation.DocumentSource = idx
	if cfg.Documents.Source == "redis" {
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to document store: %w", err)
		}
		defer client.Close()
		checker.Register("redis", client)
		docs = docstore.New(client, cfg.Redis, m)
		log.Info("reading document vectors from redis", "addr", cfg.Redis.Addr)
	}

	rk, err := ranker.New(cfg.Ranker)
	if err != nil {
		return err
	}
	tester, err := significance.New(cfg.Significance)
	if err != nil {
		return err
	}
	opts, err := evaluation.OptionsFromConfig(cfg.Evaluation)
	if err != nil {
		return err
	}
	docCache, err := cache.New(cfg.Evaluation.CacheSize, m)
	if err != nil {
		return err
	}
	runner, err := evaluation.New(opts, evaluation.Components{
		Ranker:     rk,
		Tester:     tester,
		Retriever:  idx,
		Documents:  docs,
		Statistics: idx,
		Cache:      docCache,
		Metrics:    m,
		Logger:     logger.WithComponent("evaluation"),
	})
	if err != nil {
		return err
	}

	rep, err := runner.Run(ctx, c.Queries, judgments)
	if err != nil {
		return err
	}

	outputDir := cfg.Report.OutputDir
	if f.outputDir != "" {
		outputDir = f.outputDir
	}
	_, writeSpan := tracing.StartChild(ctx, "write")
	err = report.WriteTables(outputDir, rep)
	writeSpan.End()
	if err != nil {
		return fmt.Errorf("writing report tables: %w", err)
	}
	log.Info("report written", "dir", outputDir)

	if f.store || cfg.Postgres.Enabled {
		storeCtx, storeSpan := tracing.StartChild(ctx, "store")
		err := saveRun(storeCtx, cfg.Postgres, rep)
		storeSpan.End()
		if err != nil {
			return err
		}
	}

	if err := report.WriteAggregate(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	if len(rep.Failures) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d queries excluded after errors\n", len(rep.Failures), rep.NumQueries)
	}
	return nil
}

func saveRun(ctx context.Context, cfg config.PostgresConfig, rep *evaluation.Report) error {
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to report store: %w", err)
	}
	defer db.Close()
	store := report.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if _, err := store.Save(ctx, rep); err != nil {
		return err
	}
	return nil
}
