package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	parsers "logscope/internal/parser"
	"logscope/internal/parser/accesslog"

	"github.com/pterm/pterm"
)

// ErrNoValidRecords reports a file in which no line parsed into a record.
var ErrNoValidRecords = errors.New("no valid log entries found")

// MaxShards bounds the parallelism regardless of configuration.
const MaxShards = 6

// DefaultShards matches the parse worker pool size used for batches.
const DefaultShards = 4

// Progress is one incremental progress signal emitted during ingestion.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// Result is the outcome of one ingestion: records restored to original
// file order, the filter-menu vocabularies, and diagnostic counters.
type Result struct {
	Records  []*accesslog.Record
	Statuses []int
	Methods  []string

	LinesProcessed int
	LinesRejected  int
}

// Options configures one coordinator.
type Options struct {
	// ShardCount is the number of parallel parse shards; values above
	// MaxShards are capped, values below 1 are a configuration error.
	ShardCount int

	// ChunkSize bounds how many lines a shard parses between progress
	// signals.
	ChunkSize int

	// Progress, when set, receives incremental signals during parsing
	// and merging. It may be called from multiple goroutines.
	Progress func(Progress)
}

// Coordinator splits raw log text into contiguous line shards, parses the
// shards concurrently, and merges the results back into file order.
// Shards share no state; a shard that fails catastrophically contributes
// an empty result instead of aborting the ingestion.
type Coordinator struct {
	parser     parsers.LineParser
	logger     *pterm.Logger
	shardCount int
	chunkSize  int
	progress   func(Progress)
}

const defaultChunkSize = 10000

// NewCoordinator creates a new ingestion coordinator
func NewCoordinator(parser parsers.LineParser, logger *pterm.Logger, opts Options) (*Coordinator, error) {
	if opts.ShardCount == 0 {
		opts.ShardCount = DefaultShards
	}
	if opts.ShardCount < 1 {
		return nil, fmt.Errorf("shard count must be at least 1, got %d", opts.ShardCount)
	}
	if opts.ShardCount > MaxShards {
		logger.Debug("Capping shard count",
			logger.Args("requested", opts.ShardCount, "cap", MaxShards))
		opts.ShardCount = MaxShards
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}

	return &Coordinator{
		parser:     parser,
		logger:     logger,
		shardCount: opts.ShardCount,
		chunkSize:  opts.ChunkSize,
		progress:   opts.Progress,
	}, nil
}

// shardResult carries one shard's output back to the merge step.
type shardResult struct {
	index     int
	records   []*accesslog.Record
	statuses  map[int]struct{}
	methods   map[string]struct{}
	processed int
	rejected  int
}

// Ingest parses the raw text of one log file. The returned records are in
// ascending line-number order regardless of shard completion order.
func (c *Coordinator) Ingest(ctx context.Context, rawText string) (*Result, error) {
	lines := splitLines(rawText)
	total := len(lines)

	shardCount := c.shardCount
	if shardCount > total && total > 0 {
		shardCount = total
	}

	c.logger.Info("Starting ingestion",
		c.logger.Args("lines", total, "shards", shardCount))

	linesPerShard := (total + shardCount - 1) / shardCount

	var processed atomic.Int64
	results := make(chan shardResult, shardCount)

	var wg sync.WaitGroup
	for i := 0; i < shardCount; i++ {
		start := i * linesPerShard
		if start >= total {
			break
		}
		end := start + linesPerShard
		if end > total {
			end = total
		}

		wg.Add(1)
		go func(index, start, end int) {
			defer wg.Done()
			results <- c.parseShard(ctx, index, lines, start, end, total, &processed)
		}(i, start, end)
	}

	wg.Wait()
	close(results)

	merged := &Result{}
	statuses := make(map[int]struct{})
	methods := make(map[string]struct{})

	for sr := range results {
		merged.Records = append(merged.Records, sr.records...)
		merged.LinesProcessed += sr.processed
		merged.LinesRejected += sr.rejected
		for s := range sr.statuses {
			statuses[s] = struct{}{}
		}
		for m := range sr.methods {
			methods[m] = struct{}{}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Shard completion order is non-deterministic; restore file order.
	sort.SliceStable(merged.Records, func(i, j int) bool {
		return merged.Records[i].LineNumber < merged.Records[j].LineNumber
	})

	for s := range statuses {
		merged.Statuses = append(merged.Statuses, s)
	}
	sort.Ints(merged.Statuses)
	for m := range methods {
		merged.Methods = append(merged.Methods, m)
	}
	sort.Strings(merged.Methods)

	c.emit(Progress{Stage: "merge", Percent: 100})

	if len(merged.Records) == 0 {
		c.logger.Warn("Ingestion produced no valid records",
			c.logger.Args("lines", total, "rejected", merged.LinesRejected))
		return nil, ErrNoValidRecords
	}

	c.logger.Info("Ingestion complete",
		c.logger.Args(
			"records", len(merged.Records),
			"rejected", merged.LinesRejected,
			"statuses", len(merged.Statuses),
			"methods", len(merged.Methods),
		))

	return merged, nil
}

// parseShard parses one contiguous line range. Panics are confined to the
// shard: whatever was parsed before the panic is discarded and the shard
// reports an empty result.
func (c *Coordinator) parseShard(ctx context.Context, index int, lines []string, start, end, total int, processed *atomic.Int64) (sr shardResult) {
	sr = shardResult{
		index:    index,
		statuses: make(map[int]struct{}),
		methods:  make(map[string]struct{}),
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.WithCaller().Error("Shard failed, contributing no records",
				c.logger.Args("shard", index, "panic", r))
			sr.records = nil
		}
	}()

	for chunkStart := start; chunkStart < end; chunkStart += c.chunkSize {
		if ctx.Err() != nil {
			return sr
		}

		chunkEnd := chunkStart + c.chunkSize
		if chunkEnd > end {
			chunkEnd = end
		}

		for i := chunkStart; i < chunkEnd; i++ {
			sr.processed++

			record, err := c.parser.Parse(lines[i], i+1)
			if err != nil {
				if errors.Is(err, accesslog.ErrNoMatch) {
					sr.rejected++
				}
				continue
			}

			if record.Status != 0 {
				sr.statuses[record.Status] = struct{}{}
			}
			if record.Method != "" && record.Method != "-" {
				sr.methods[record.Method] = struct{}{}
			}
			sr.records = append(sr.records, record)
		}

		done := processed.Add(int64(chunkEnd - chunkStart))
		c.emit(Progress{
			Stage:   "parse",
			Percent: int(done * 100 / int64(total)),
		})
	}

	return sr
}

func (c *Coordinator) emit(p Progress) {
	if c.progress != nil {
		c.progress(p)
	}
}

// splitLines splits on \n, tolerating \r\n endings.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
