package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"elarocks/config"
	"elarocks/internal/elasticsearch"
	"elarocks/internal/encoder"
	"elarocks/internal/extractor"
	"elarocks/internal/kafka"
	"elarocks/internal/kvstore"
	"elarocks/internal/metrics"
	"elarocks/internal/runstate"
	"elarocks/internal/schema"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RunResult summarizes one completed extraction run.
type RunResult struct {
	RunID     string        `json:"run_id"`
	EventCode string        `json:"event_code"`
	Action    string        `json:"event_action"`
	Records   int           `json:"records"`
	File      string        `json:"file"`
	Loaded    int           `json:"loaded"`
	Duration  time.Duration `json:"duration"`
}

type ExtractionService interface {
	// Run extracts one event code end to end. A failed fetch or write leaves
	// no output file behind.
	Run(ctx context.Context, eventCode string) (*RunResult, error)
	// RunAll runs every configured event code. Overlapping calls are skipped.
	RunAll(ctx context.Context) error
	RunState() (runstate.State, error)
}

type extractionService struct {
	cfg       config.ExtractConfig
	registry  *schema.Registry
	source    elasticsearch.DocumentSource
	pipeline  *extractor.Pipeline
	publisher kafka.RecordPublisher
	loader    *kvstore.Loader
	stateMgr  runstate.Manager
	metrics   *metrics.RunMetrics
	runLock   sync.Mutex
}

// NewExtractionService wires the extraction stages. publisher, loader,
// stateMgr and runMetrics may be nil; loader is also skipped when LoadAfter
// is false.
func NewExtractionService(
	cfg *config.Config,
	registry *schema.Registry,
	source elasticsearch.DocumentSource,
	pipeline *extractor.Pipeline,
	publisher kafka.RecordPublisher,
	loader *kvstore.Loader,
	stateMgr runstate.Manager,
	runMetrics *metrics.RunMetrics,
) ExtractionService {
	return &extractionService{
		cfg:       cfg.Extract,
		registry:  registry,
		source:    source,
		pipeline:  pipeline,
		publisher: publisher,
		loader:    loader,
		stateMgr:  stateMgr,
		metrics:   runMetrics,
	}
}

func (s *extractionService) Run(ctx context.Context, eventCode string) (result *RunResult, err error) {
	sch, err := s.registry.ForCode(eventCode)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.metrics.ObserveFailure(sch.Code())
		}
	}()

	startTime := time.Now()
	result = &RunResult{
		RunID:     uuid.NewString(),
		EventCode: sch.Code(),
		Action:    sch.ActionLabel(),
		File:      sch.OutputPath(s.cfg.SaveLocation, s.cfg.FileSuffix),
	}
	logger := log.With().Str("run_id", result.RunID).Str("event_code", result.EventCode).Logger()
	before := s.cfg.End()
	logger.Info().Str("kind", string(sch.Kind())).Time("before", before).Msg("Starting extraction run")

	docs, err := s.source.Fetch(ctx, elasticsearch.Query{
		EventCode: sch.Code(),
		Before:    before,
		Size:      s.cfg.Size,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Fetch failed, no output written")
		return nil, err
	}

	batch := s.pipeline.Extract(docs, sch)
	result.Records = len(batch)

	if dir := filepath.Dir(result.File); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create output directory: %v", encoder.ErrIO, err)
		}
	}
	if err := encoder.WriteFile(result.File, batch, sch); err != nil {
		logger.Error().Err(err).Str("file", result.File).Msg("Failed to write tabular output")
		return nil, err
	}
	logger.Info().Str("file", result.File).Int("records", result.Records).Int("documents", len(docs)).Msg("Wrote tabular output")

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, result.RunID, result.EventCode, batch); err != nil {
			logger.Error().Err(err).Msg("Failed to publish records, output file is unaffected")
		}
	}

	if s.loader != nil && s.cfg.LoadAfter {
		loaded, err := s.loader.LoadFile(ctx, result.File)
		if err != nil {
			logger.Error().Err(err).Str("file", result.File).Msg("Failed to load output into key-value store")
			return nil, fmt.Errorf("load %s: %w", result.File, err)
		}
		result.Loaded = loaded
	}

	result.Duration = time.Since(startTime)
	s.metrics.ObserveSuccess(result.EventCode, len(docs), result.Records, result.Loaded, result.Duration)
	if s.stateMgr != nil {
		err := s.stateMgr.Update(result.EventCode, runstate.RunState{
			LastRun: startTime.UTC(),
			Records: result.Records,
			File:    result.File,
			RunID:   result.RunID,
			Loaded:  result.Loaded,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to save run state")
		}
	}

	logger.Info().Dur("duration", result.Duration).Int("loaded", result.Loaded).Msg("Extraction run finished")
	return result, nil
}

func (s *extractionService) RunAll(ctx context.Context) error {
	if !s.runLock.TryLock() {
		log.Warn().Msg("Extraction already in progress, skipping run.")
		return nil
	}
	defer s.runLock.Unlock()

	log.Info().Strs("event_codes", s.cfg.EventCodes).Int("parallelism", s.cfg.Parallelism).Msg("Starting extraction cycle...")
	startTime := time.Now()

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(max(s.cfg.Parallelism, 1))
	for _, code := range s.cfg.EventCodes {
		code := code
		g.Go(func() error {
			if _, err := s.Run(ctx, code); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("event code %s: %w", code, err))
				mu.Unlock()
			}
			// A failed code does not stop its siblings.
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if err != nil {
		log.Error().Err(err).Int("failed", len(errs)).Dur("duration", time.Since(startTime)).Msg("Extraction cycle finished with failures")
		return err
	}
	log.Info().Dur("duration", time.Since(startTime)).Msg("Extraction cycle finished")
	return nil
}

func (s *extractionService) RunState() (runstate.State, error) {
	if s.stateMgr == nil {
		return runstate.State{}, nil
	}
	return s.stateMgr.LoadState()
}
