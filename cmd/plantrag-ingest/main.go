// plantrag-ingest rebuilds the vector index from a dataset file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sonoran-cloud/plantrag/internal/config"
	dbRedis "github.com/sonoran-cloud/plantrag/internal/db/redis"
	"github.com/sonoran-cloud/plantrag/internal/domain"
	logpkg "github.com/sonoran-cloud/plantrag/internal/logger"
	"github.com/sonoran-cloud/plantrag/internal/metrics"
	"github.com/sonoran-cloud/plantrag/internal/repository/embcache"
	indexrepo "github.com/sonoran-cloud/plantrag/internal/repository/index"
	openaiTransport "github.com/sonoran-cloud/plantrag/internal/transport/openai"
	"github.com/sonoran-cloud/plantrag/internal/usecase/ingest"
	"github.com/sonoran-cloud/plantrag/internal/version"
)

func main() {
	var datasetPath string
	flag.StringVar(&datasetPath, "dataset", "", "path to the dataset file (.json or .jsonl)")
	flag.Parse()

	if datasetPath == "" {
		fmt.Fprintln(os.Stderr, "usage: plantrag-ingest -dataset <path>")
		os.Exit(2)
	}

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting plantrag ingestion",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("dataset", datasetPath),
		zap.String("collection", cfg.Index.Collection),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Cancel the run on SIGINT/SIGTERM; a partial rebuild leaves the
	// collection reset but incomplete, which health reports as degraded.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterEmbeddingMetrics()

	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	// Document chain: OpenAI -> Cached -> Instruction. Queries use a separate
	// chain with their own instruction, built by the API server.
	var chain domain.BatchEmbedder = base
	if cfg.Embedding.CacheEnabled {
		chain = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}
	if instr := cfg.Embedding.DocumentInstruction; instr != "" {
		chain = domain.NewInstructionEmbedder(asEmbedder(chain), instr)
	}

	indexRepo := indexrepo.New(store, cfg.Index.Collection).WithHNSW(indexrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})

	pipeline := ingest.New(
		&pipelineEmbedder{inner: chain, dim: base.Dimension()},
		indexRepo,
		ingest.Config{
			MaxEmbedChars:   cfg.Index.MaxEmbedChars,
			EmbedBatchSize:  cfg.Index.EmbedBatchSize,
			UpsertBatchSize: cfg.Index.UpsertBatchSize,
		},
		logger,
	)

	count, err := pipeline.Run(ctx, datasetPath)
	if err != nil {
		logger.Error("Ingestion failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Index rebuilt", zap.Int("points", count))
}

// pipelineEmbedder adapts the decorator chain to the ingest contract: the
// chain carries BatchEmbed, the base provider knows the dimension.
type pipelineEmbedder struct {
	inner domain.BatchEmbedder
	dim   int
}

func (p *pipelineEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return p.inner.BatchEmbed(ctx, texts)
}

func (p *pipelineEmbedder) Dimension() int {
	return p.dim
}

// asEmbedder narrows a chain element to domain.Embedder. Every element in the
// chain implements both single and batch embedding.
func asEmbedder(b domain.BatchEmbedder) domain.Embedder {
	if e, ok := b.(domain.Embedder); ok {
		return e
	}
	panic("embedder chain element does not implement Embed")
}
