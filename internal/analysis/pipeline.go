package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/section-speed/backend/internal/models"
	"github.com/section-speed/backend/internal/parser"
	"github.com/section-speed/backend/internal/source"
	"github.com/sourcegraph/conc/pool"
)

// Inputs names where each checkpoint side's logs come from. Both may point
// at the same source (a zip archive holding both prefixes).
type Inputs struct {
	Start source.Source
	End   source.Source
}

// ProgressCallback reports how many source files have been processed.
type ProgressCallback func(done, total int)

// Pipeline runs load -> extract -> collect -> match -> aggregate.
type Pipeline struct {
	registry *parser.Registry
	workers  int
}

// NewPipeline creates a pipeline with the given worker count (<= 0 uses GOMAXPROCS).
func NewPipeline(registry *parser.Registry, workers int) *Pipeline {
	if registry == nil {
		registry = parser.GetGlobalRegistry()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{registry: registry, workers: workers}
}

// fileOutcome is the result of decoding and extracting one source file.
type fileOutcome struct {
	file *models.ExtractedFile
	diag models.FileDiagnostic
}

// Run executes one full analysis. Line and file level problems end up in
// ResultSet.Diagnostics; only enumeration failures and cancellation are errors.
func (p *Pipeline) Run(ctx context.Context, cfg models.AnalysisConfig, in Inputs, onProgress ProgressCallback) (*models.ResultSet, error) {
	if in.Start == nil || in.End == nil {
		return nil, errors.New("both start and end sources are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}

	fixed, err := p.registry.ForMode(cfg.ExtractMode)
	if err != nil {
		return nil, err
	}

	startItems, err := in.Start.Items(ctx, cfg.StartPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing start files: %w", err)
	}
	endItems, err := in.End.Items(ctx, cfg.EndPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing end files: %w", err)
	}

	began := time.Now()
	log.Info().
		Str("start", in.Start.Name()).Int("startFiles", len(startItems)).
		Str("end", in.End.Name()).Int("endFiles", len(endItems)).
		Str("mode", string(cfg.ExtractMode)).Str("policy", string(cfg.MergePolicy)).
		Msg("analysis started")

	opts := parser.Options{
		Location:  cfg.Location(),
		MaxErrors: cfg.MaxErrorsPerFile,
		Intern:    parser.NewStringIntern(),
	}

	total := len(startItems) + len(endItems)
	tracker := newProgress(total, onProgress)

	startOut, err := p.extractSide(ctx, models.SideStart, startItems, fixed, opts, tracker)
	if err != nil {
		return nil, err
	}
	endOut, err := p.extractSide(ctx, models.SideEnd, endItems, fixed, opts, tracker)
	if err != nil {
		return nil, err
	}

	startLog := parser.MergeCheckpoint(models.SideStart, cfg.MergePolicy, extractedFiles(startOut))
	endLog := parser.MergeCheckpoint(models.SideEnd, cfg.MergePolicy, extractedFiles(endOut))

	match := Match(startLog, endLog, cfg)

	result := &models.ResultSet{
		Records:         match.Records,
		Summary:         Summarize(match, startLog, endLog, cfg),
		MonthlyCounts:   MonthlyCounts(match.Records),
		StartHourCounts: StartHourCounts(match.Records),
		EndHourCounts:   EndHourCounts(match.Records),
		TopWeekdayHours: TopWeekdayHours(match.Records, TopBuckets),
		StartVolume:     startLog.CaptureHourCounts(),
		EndVolume:       endLog.CaptureHourCounts(),
		Config:          cfg,
		Diagnostics:     append(diagnostics(startOut), diagnostics(endOut)...),
		GeneratedAt:     time.Now(),
	}

	log.Info().
		Int("startPlates", startLog.Len()).Int("endPlates", endLog.Len()).
		Int("matched", len(match.Records)).Int("rejected", match.Rejected).
		Dur("elapsed", time.Since(began)).
		Msg("analysis complete")

	return result, nil
}

// extractSide decodes and extracts every item concurrently. Outcomes keep the
// item order so the sequential merge afterwards is deterministic.
func (p *Pipeline) extractSide(ctx context.Context, side models.Side, items []source.Item, fixed parser.Extractor, opts parser.Options, tracker *progress) ([]fileOutcome, error) {
	outcomes := make([]fileOutcome, len(items))

	wp := pool.New().WithMaxGoroutines(p.workers)
	for i, item := range items {
		wp.Go(func() {
			if ctx.Err() != nil {
				return
			}
			outcomes[i] = p.extractOne(side, item, fixed, opts)
			tracker.done()
		})
	}
	wp.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (p *Pipeline) extractOne(side models.Side, item source.Item, fixed parser.Extractor, opts parser.Options) fileOutcome {
	diag := models.FileDiagnostic{Side: side, FileName: item.Name}

	raw, err := item.ReadAll()
	if err != nil {
		diag.Skipped = true
		diag.Reason = err.Error()
		log.Warn().Err(err).Str("side", string(side)).Str("file", item.Name).Msg("source file unreadable")
		return fileOutcome{diag: diag}
	}

	text, encoding := source.Decode(raw)
	diag.Encoding = encoding

	ext := fixed
	if ext == nil {
		ext, err = p.registry.Detect(text)
		if err != nil {
			diag.Skipped = true
			diag.Reason = err.Error()
			return fileOutcome{diag: diag}
		}
	}

	file, lineErrs, err := ext.Extract(item.Name, text, opts)
	if err != nil {
		diag.Skipped = true
		diag.Reason = err.Error()
		log.Debug().Err(err).Str("side", string(side)).Str("file", item.Name).Msg("source file skipped")
		return fileOutcome{diag: diag}
	}
	file.Encoding = encoding

	diag.Events = len(file.Events)
	diag.Errors = make([]models.ParseError, 0, len(lineErrs))
	for _, e := range lineErrs {
		if e != nil {
			diag.Errors = append(diag.Errors, *e)
		}
	}

	log.Debug().
		Str("side", string(side)).Str("file", item.Name).Str("extractor", ext.Name()).
		Str("encoding", encoding).Int("events", diag.Events).Int("lineErrors", len(diag.Errors)).
		Msg("extracted")

	return fileOutcome{file: file, diag: diag}
}

func extractedFiles(outcomes []fileOutcome) []*models.ExtractedFile {
	files := make([]*models.ExtractedFile, 0, len(outcomes))
	for _, o := range outcomes {
		if o.file != nil {
			files = append(files, o.file)
		}
	}
	return files
}

func diagnostics(outcomes []fileOutcome) []models.FileDiagnostic {
	out := make([]models.FileDiagnostic, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, o.diag)
	}
	return out
}
