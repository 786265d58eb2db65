package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/northbridge-ai/diligence/internal/core/domain"
	"github.com/northbridge-ai/diligence/internal/core/ports"
)

const DefaultBatchSize = 128

var supportedExtensions = map[string]struct{}{
	".csv":  {},
	".txt":  {},
	".md":   {},
	".pdf":  {},
	".xlsx": {},
}

// IngestPipeline runs the batch pass: enumerate files, load, chunk, dedup,
// and store surviving chunks into the category collection plus the union
// collection. One pipeline instance must not run ingestions concurrently;
// the deduplicator state is per-run.
type IngestPipeline struct {
	loaders     []ports.DocumentLoader
	chunker     ports.Chunker
	dedup       ports.Deduplicator
	collections ports.CollectionProvider
	batchSize   int
	logger      *slog.Logger
}

func NewIngestPipeline(
	loaders []ports.DocumentLoader,
	chunker ports.Chunker,
	dedup ports.Deduplicator,
	collections ports.CollectionProvider,
	batchSize int,
	logger *slog.Logger,
) *IngestPipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestPipeline{
		loaders:     loaders,
		chunker:     chunker,
		dedup:       dedup,
		collections: collections,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// IngestDirectory processes every supported file under root. Individual
// file failures are recorded in the stats and never abort the run.
func (p *IngestPipeline) IngestDirectory(ctx context.Context, root string, recursive bool) (*domain.IngestionStats, error) {
	stats := domain.NewIngestionStats()
	p.dedup.Clear()

	files, err := p.collectFiles(root, recursive)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", root, err)
	}
	p.logger.Info("ingest_started", "root", root, "files", len(files))

	byCategory := make(map[domain.DocumentCategory][]domain.DocumentChunk)
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.logger.Debug("ingest_file", "path", path, "index", i+1, "total", len(files))

		chunks, err := p.ingestFile(ctx, path, stats)
		if err != nil {
			p.logger.Warn("ingest_file_failed", "path", path, "error", err)
			stats.RecordFailure(filepath.Base(path), err)
			continue
		}
		for _, chunk := range chunks {
			byCategory[chunk.Metadata.Category] = append(byCategory[chunk.Metadata.Category], chunk)
		}
	}

	for category, chunks := range byCategory {
		if err := p.storeChunks(ctx, category, chunks); err != nil {
			p.logger.Error("ingest_store_failed", "category", string(category), "error", err)
			stats.Errors = append(stats.Errors, fmt.Sprintf("store %s: %v", category, err))
		}
	}

	stats.Finish()
	p.logger.Info("ingest_complete",
		"files_processed", stats.FilesProcessed,
		"files_failed", stats.FilesFailed,
		"chunks_created", stats.ChunksCreated,
		"chunks_deduplicated", stats.ChunksDeduplicated,
		"dedup_ratio", stats.DedupRatio(),
		"duration_ms", float64(stats.Duration().Microseconds())/1000.0,
	)
	return stats, nil
}

func (p *IngestPipeline) ingestFile(ctx context.Context, path string, stats *domain.IngestionStats) ([]domain.DocumentChunk, error) {
	loader := p.loaderFor(path)
	if loader == nil {
		return nil, domain.WrapError(domain.ErrUnsupported, "select loader", fmt.Errorf("no loader for %s", filepath.Ext(path)))
	}

	blocks, err := loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if len(blocks) == 0 {
		p.logger.Warn("ingest_file_empty", "path", path)
		return nil, nil
	}

	now := time.Now()
	var out []domain.DocumentChunk
	for _, block := range blocks {
		segments := p.chunker.Chunk(block.Content, block.Metadata.ToMap())
		for i, text := range segments {
			if p.dedup.IsDuplicate(text) {
				stats.ChunksDeduplicated++
				continue
			}

			meta := block.Metadata
			meta.ChunkIndex = i
			meta.TotalChunks = len(segments)
			meta.ChunkHash = p.dedup.Add(text)
			meta.UploadDate = now

			out = append(out, domain.DocumentChunk{Content: text, Metadata: meta})
			stats.ChunksCreated++
			stats.TotalCharacters += len(text)
		}
	}

	stats.FilesProcessed++
	if len(out) > 0 {
		category := string(out[0].Metadata.Category)
		stats.Categories[category] += len(out)
	}
	return out, nil
}

// storeChunks writes fixed-size batches into the category collection and
// mirrors every batch into the union collection.
func (p *IngestPipeline) storeChunks(ctx context.Context, category domain.DocumentCategory, chunks []domain.DocumentChunk) error {
	collection, err := p.collections.Collection(ctx, category)
	if err != nil {
		return fmt.Errorf("resolve collection: %w", err)
	}

	var all ports.VectorCollection
	if category != domain.CategoryUnknown {
		all, err = p.collections.Collection(ctx, domain.CategoryUnknown)
		if err != nil {
			return fmt.Errorf("resolve union collection: %w", err)
		}
		// Aliased categories (cross_ref) resolve to the union itself;
		// mirroring would re-add the same chunk ids.
		if all == collection {
			all = nil
		}
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		end := min(start+p.batchSize, len(chunks))
		batch := chunks[start:end]

		if err := collection.Add(ctx, batch); err != nil {
			return fmt.Errorf("add batch: %w", err)
		}
		if all != nil {
			if err := all.Add(ctx, batch); err != nil {
				return fmt.Errorf("add union batch: %w", err)
			}
		}
		p.logger.Debug("ingest_batch_stored", "category", string(category), "chunks", len(batch))
	}
	return nil
}

func (p *IngestPipeline) loaderFor(path string) ports.DocumentLoader {
	for _, loader := range p.loaders {
		if loader.Supports(path) {
			return loader
		}
	}
	return nil
}

func (p *IngestPipeline) collectFiles(root string, recursive bool) ([]string, error) {
	var files []string

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if isSupported(entry.Name()) {
				files = append(files, filepath.Join(root, entry.Name()))
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func isSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
