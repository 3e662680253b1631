// Package importer loads job descriptions from CSV, Parquet and JSON-lines
// files into the catalog.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/raaihank/fairhire/internal/catalog"
	"github.com/raaihank/fairhire/internal/embeddings"
	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"
)

const maxReportedErrors = 50

// Pipeline imports job records in batches
type Pipeline struct {
	store      catalog.Store
	embeddings embeddings.EmbeddingService
	config     Config
	logger     *zap.Logger
}

// NewPipeline creates a new import pipeline. service may be nil when
// cfg.WarmEmbeddings is off.
func NewPipeline(store catalog.Store, service embeddings.EmbeddingService, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return &Pipeline{store: store, embeddings: service, config: cfg, logger: logger}
}

// batchReader returns the next records, or none at end of input.
type batchReader func() ([]Record, error)

// ProcessFile imports a CSV, Parquet or JSON-lines file
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*ProcessingResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	format := DetectFileFormat(filePath)
	p.logger.Info("Starting catalog import",
		zap.String("file", filePath),
		zap.String("format", string(format)),
		zap.Int("batch_size", p.config.BatchSize))

	if format == FormatParquet {
		info, err := file.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat import file: %w", err)
		}
		return p.processParquet(ctx, file, info.Size())
	}
	return p.Process(ctx, file, format)
}

// Process imports records read from r
func (p *Pipeline) Process(ctx context.Context, r io.Reader, format FileFormat) (*ProcessingResult, error) {
	switch format {
	case FormatCSV:
		return p.processCSV(ctx, r)
	case FormatJSON:
		return p.processJSON(ctx, r)
	case FormatParquet:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet data: %w", err)
		}
		return p.processParquet(ctx, bytes.NewReader(data), int64(len(data)))
	default:
		return nil, fmt.Errorf("unsupported file format: %s", format)
	}
}

func (p *Pipeline) processCSV(ctx context.Context, r io.Reader) (*ProcessingResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	titleCol, descCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case "title":
			titleCol = i
		case "description":
			descCol = i
		}
	}
	if titleCol < 0 || descCol < 0 {
		return nil, fmt.Errorf("CSV header must contain title and description columns, got %v", header)
	}

	p.logger.Debug("CSV header detected", zap.Strings("columns", header))

	result := &ProcessingResult{}
	err = p.processBatches(ctx, func() ([]Record, error) {
		var batch []Record
		for len(batch) < p.config.BatchSize {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				result.addError("csv: %v", err)
				result.Invalid++
				continue
			}
			if titleCol >= len(row) || descCol >= len(row) {
				result.addError("csv line with %d fields", len(row))
				result.Invalid++
				continue
			}
			batch = append(batch, Record{Title: row[titleCol], Description: row[descCol]})
		}
		return batch, nil
	}, result)
	return result, err
}

func (p *Pipeline) processParquet(ctx context.Context, r io.ReaderAt, size int64) (*ProcessingResult, error) {
	file, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet data: %w", err)
	}
	reader := parquet.NewReader(file)
	defer reader.Close()

	result := &ProcessingResult{}
	err = p.processBatches(ctx, func() ([]Record, error) {
		var batch []Record
		for len(batch) < p.config.BatchSize {
			var record Record
			err := reader.Read(&record)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read parquet record: %w", err)
			}
			batch = append(batch, record)
		}
		return batch, nil
	}, result)
	return result, err
}

// processJSON reads one JSON object per line
func (p *Pipeline) processJSON(ctx context.Context, r io.Reader) (*ProcessingResult, error) {
	decoder := json.NewDecoder(r)

	result := &ProcessingResult{}
	err := p.processBatches(ctx, func() ([]Record, error) {
		var batch []Record
		for len(batch) < p.config.BatchSize {
			var record Record
			err := decoder.Decode(&record)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				// The decoder cannot resync after a syntax error.
				return nil, fmt.Errorf("failed to read JSON record: %w", err)
			}
			batch = append(batch, record)
		}
		return batch, nil
	}, result)
	return result, err
}

// processBatches validates, de-duplicates and upserts batches until the
// reader runs dry
func (p *Pipeline) processBatches(ctx context.Context, readBatch batchReader, result *ProcessingResult) error {
	start := time.Now()
	seen := make(map[string]bool)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		row := result.TotalRecords
		result.TotalRecords += int64(len(batch))

		jobs := make([]catalog.Job, 0, len(batch))
		for _, record := range batch {
			row++
			record.Title = strings.TrimSpace(record.Title)
			record.Description = strings.TrimSpace(record.Description)

			if msg := p.validateRecord(record); msg != "" {
				result.Invalid++
				result.addError("record %d: %s", row, msg)
				continue
			}
			key := strings.ToLower(record.Title)
			if p.config.SkipDuplicates && seen[key] {
				result.Duplicates++
				continue
			}
			seen[key] = true
			jobs = append(jobs, catalog.Job{Title: record.Title, Description: record.Description})
		}

		if err := p.processBatch(ctx, jobs, result); err != nil {
			p.logger.Error("Batch processing failed", zap.Error(err))
			result.Failed += int64(len(jobs))
			result.addError("%v", err)
			continue
		}
	}

	result.Duration = time.Since(start)

	p.logger.Info("Catalog import completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("inserted", result.Inserted),
		zap.Int64("updated", result.Updated),
		zap.Int64("invalid", result.Invalid),
		zap.Int64("duplicates", result.Duplicates),
		zap.Int64("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	return nil
}

func (p *Pipeline) processBatch(ctx context.Context, jobs []catalog.Job, result *ProcessingResult) error {
	if len(jobs) == 0 {
		return nil
	}
	result.Batches++

	dbStart := time.Now()
	upsert, err := p.store.Upsert(ctx, jobs)
	if err != nil {
		return fmt.Errorf("catalog upsert failed: %w", err)
	}
	result.DatabaseTime += time.Since(dbStart)
	result.Inserted += upsert.Inserted
	result.Updated += upsert.Updated

	if p.config.WarmEmbeddings && p.embeddings != nil {
		texts := make([]string, len(jobs))
		for i, job := range jobs {
			texts[i] = job.Description
		}
		embStart := time.Now()
		if _, err := p.embeddings.GenerateBatchEmbeddings(ctx, texts); err != nil {
			p.logger.Warn("Failed to warm embeddings", zap.Error(err))
		}
		result.EmbeddingTime += time.Since(embStart)
	}

	p.logger.Debug("Batch processed",
		zap.Int("batch_size", len(jobs)),
		zap.Int64("inserted", upsert.Inserted),
		zap.Int64("updated", upsert.Updated))

	return nil
}

// validateRecord returns why a record is rejected, or "" when it is valid
func (p *Pipeline) validateRecord(record Record) string {
	if record.Title == "" {
		return "empty title"
	}
	if record.Description == "" {
		return "empty description"
	}
	if !p.config.ValidateData {
		return ""
	}
	if len(record.Title) > 200 {
		return "title too long"
	}
	if p.config.MaxDescriptionLength > 0 && len(record.Description) > p.config.MaxDescriptionLength {
		return "description too long"
	}
	return ""
}

func (r *ProcessingResult) addError(format string, args ...any) {
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	}
}
