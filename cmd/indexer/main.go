package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/rag-chatbot/internal/app"
	"github.com/yungbote/rag-chatbot/internal/config"
	"github.com/yungbote/rag-chatbot/internal/platform/logger"
	"github.com/yungbote/rag-chatbot/internal/platform/shutdown"
	"github.com/yungbote/rag-chatbot/internal/rag"
)

func main() {
	var (
		reindex bool
		dryRun  bool
		dataDir string
	)
	flag.BoolVar(&reindex, "reindex", false, "clear the vector index before indexing")
	flag.BoolVar(&dryRun, "dry-run", false, "load and chunk documents without embedding or upserting")
	flag.StringVar(&dataDir, "data-dir", "", "directory of .txt/.md/.pdf documents (default RAG_DATA_DIR)")
	flag.Parse()

	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, reindex, dryRun, dataDir); err != nil {
		log.Error("indexing failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *logger.Logger, reindex, dryRun bool, dataDir string) error {
	if dryRun {
		return dryRunChunks(log, dataDir)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dataDir == "" {
		dataDir = cfg.RAG.DataDir
	}

	comps, err := app.Build(log, cfg, nil, app.BuildOptions{Reindex: reindex, DataDir: dataDir})
	if err != nil {
		return err
	}
	defer comps.Close()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	res, err := comps.Indexer.Bootstrap(ctx, dataDir, cfg.Vector.Dimension, reindex || cfg.RAG.Reindex)
	if err != nil {
		return err
	}
	if res.Skipped {
		fmt.Printf("index already holds %d vectors; nothing to do (use -reindex to rebuild)\n", res.Existing)
		return nil
	}
	fmt.Printf("indexed %d files into %d chunks (%d upserts)\n", res.Stats.Files, res.Stats.Chunks, res.Stats.Upserts)
	return nil
}

// dryRunChunks loads and chunks documents without touching any provider, so
// no credentials are needed.
func dryRunChunks(log *logger.Logger, dataDir string) error {
	cfg, err := config.LoadOffline()
	if err != nil {
		return err
	}
	if dataDir == "" {
		dataDir = cfg.RAG.DataDir
	}
	docs, err := rag.LoadDocuments(dataDir)
	if err != nil {
		return err
	}
	chunks := rag.ChunkDocuments(docs, cfg.RAG.ChunkWords)
	log.Info("Dry run chunked documents", "dir", dataDir, "files", len(docs), "chunks", len(chunks))
	fmt.Printf("dry run: %d files, %d chunks\n", len(docs), len(chunks))
	return nil
}
