package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/nightshade/scanner/internal/config"
	"github.com/nightshade/scanner/internal/detectors"
	"github.com/nightshade/scanner/internal/report"
	"github.com/nightshade/scanner/internal/utils"
)

// ScanTaskResult holds the outcome of running one detector against one
// target.
type ScanTaskResult struct {
	Target   string
	Detector string
	Findings []report.Finding
	Error    error
}

// Scheduler orchestrates the scanning process: it fans (target x detector)
// jobs out over a worker pool and streams results back to the caller. Each
// job runs one detector probe, which internally creates, delivers and
// confirms its own payload sessions.
type Scheduler struct {
	config    *config.Config
	detectors []detectors.Detector
	logger    utils.Logger
	pool      *utils.WorkerPool

	shutdownOnce sync.Once
}

// NewScheduler creates a new Scheduler instance.
func NewScheduler(parentCtx context.Context, cfg *config.Config, dets []detectors.Detector, logger utils.Logger) (*Scheduler, error) {
	if len(dets) == 0 {
		return nil, fmt.Errorf("no detectors configured")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{
		config:    cfg,
		detectors: dets,
		logger:    logger,
		pool:      utils.NewWorkerPool(parentCtx, concurrency, concurrency*2),
	}, nil
}

// Schedule starts scanning the given targets and returns a channel of
// per-job results. The channel is closed once every job has finished (or
// been abandoned by Shutdown).
func (s *Scheduler) Schedule(targets []string) <-chan ScanTaskResult {
	s.logger.Infof("Starting scan: %d target(s), %d detector(s), concurrency %d",
		len(targets), len(s.detectors), s.config.Concurrency)

	results := make(chan ScanTaskResult, len(targets)*len(s.detectors))

	var forwardWg sync.WaitGroup
	forwardWg.Add(2)
	go func() {
		defer forwardWg.Done()
		for res := range s.pool.Results() {
			if taskResult, ok := res.(ScanTaskResult); ok {
				results <- taskResult
			}
		}
	}()
	go func() {
		defer forwardWg.Done()
		// Jobs report failures inside ScanTaskResult; pool-level errors only
		// occur when a submission races a shutdown.
		for err := range s.pool.Errors() {
			s.logger.Debugf("Worker pool error: %v", err)
		}
	}()

	go func() {
		ctx := s.pool.Context()
		for _, target := range targets {
			normalized, err := utils.NormalizeURL(target)
			if err != nil {
				results <- ScanTaskResult{Target: target, Error: fmt.Errorf("invalid target: %w", err)}
				continue
			}
			for _, detector := range s.detectors {
				target := normalized
				detector := detector
				job := func() (interface{}, error) {
					s.logger.Debugf("Probing %s with %s", target, detector.Name())
					findings, err := detector.Probe(ctx, target)
					return ScanTaskResult{
						Target:   target,
						Detector: detector.Name(),
						Findings: findings,
						Error:    err,
					}, nil
				}
				if err := s.pool.Submit(job); err != nil {
					s.logger.Warnf("Could not schedule %s on %s: %v", detector.Name(), target, err)
				}
			}
		}
		s.pool.Close()
		forwardWg.Wait()
		close(results)
	}()

	return results
}

// Shutdown stops the scheduler. Queued jobs are abandoned and in-flight
// probes observe a cancelled context, terminating any active confirmation
// polls promptly.
func (s *Scheduler) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Debugf("Scheduler shutting down")
		s.pool.Shutdown()
	})
}
