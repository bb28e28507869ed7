package engine

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/note-inspector-go/internal/logger"
	"github.com/anime-shed/note-inspector-go/internal/strategy"
)

type engine struct {
	cfg       Config
	loader    *Loader
	extractor *Extractor
	matcher   *Matcher
	scorer    *Scorer
	decider   *DecisionEngine
	quality   QualityMeter
	pool      *WorkerPool
}

// New validates cfg and starts the engine worker pool
func New(cfg Config) (Authenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	scoring, err := strategy.NewScoringStrategy(cfg.ScoringMode, cfg.NormalizeBy)
	if err != nil {
		return nil, err
	}

	pool := NewWorkerPool(cfg.Workers)
	pool.Start()

	return &engine{
		cfg:       cfg,
		loader:    NewLoader(cfg.MaxImageDimension),
		extractor: NewExtractor(cfg),
		matcher:   NewMatcher(cfg.UseCrossCheck),
		scorer:    NewScorer(cfg.GoodMatchDistanceThreshold, scoring),
		decider:   NewDecisionEngine(cfg.AcceptanceThreshold, scoring.Mode()),
		quality:   NewQualityMeter(),
		pool:      pool,
	}, nil
}

// Config returns the configuration the engine was built with
func (e *engine) Config() Config {
	return e.cfg
}

// Stats returns the worker pool counters
func (e *engine) Stats() PoolStats {
	return e.pool.GetStats()
}

// MeasureQuality computes advisory quality metrics
func (e *engine) MeasureQuality(gray *image.Gray) QualityMetrics {
	return e.quality.Measure(gray)
}

// Close shuts down the worker pool
func (e *engine) Close() error {
	e.pool.Close()
	return nil
}

// BuildReferenceSet extracts features from every reference concurrently
func (e *engine) BuildReferenceSet(ctx context.Context, images []ReferenceImage) (*ReferenceSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		note *ReferenceNote
		skip *SkippedReference
	}
	results := make([]result, len(images))
	e.parallel(len(images), func(i int) {
		note, skip := e.prepareReference(images[i])
		results[i] = result{note: note, skip: skip}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notes := make([]ReferenceNote, 0, len(images))
	var skipped []SkippedReference
	for _, r := range results {
		if r.note != nil {
			notes = append(notes, *r.note)
		} else {
			skipped = append(skipped, *r.skip)
		}
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("%w: %d of %d references unusable", ErrNoReferences, len(skipped), len(images))
	}

	set := NewReferenceSet(notes, skipped, time.Now())
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"references": set.Len(),
		"skipped":    len(skipped),
		"labels":     set.Labels(),
	}).Info("Reference set built")
	return set, nil
}

func (e *engine) prepareReference(img ReferenceImage) (*ReferenceNote, *SkippedReference) {
	log := logger.WithFields(logrus.Fields{"reference": img.Source, "label": img.Label})
	if img.Label == "" {
		log.Warn("Skipping reference without label")
		return nil, &SkippedReference{Label: img.Label, Source: img.Source, Reason: "missing label"}
	}

	gray, err := e.loader.Load(img.Source, img.Data)
	if err != nil {
		log.WithError(err).Warn("Skipping undecodable reference")
		return nil, &SkippedReference{Label: img.Label, Source: img.Source, Reason: err.Error()}
	}

	features := e.extractor.Extract(gray)
	if features.Empty() {
		log.Warn("Skipping reference without features")
		return nil, &SkippedReference{Label: img.Label, Source: img.Source, Reason: ErrNoFeatures.Error()}
	}

	log.WithField("keypoints", features.Len()).Debug("Reference features extracted")
	return &ReferenceNote{Label: img.Label, Source: img.Source, Features: features}, nil
}

// Authenticate scores the candidate against every reference note
func (e *engine) Authenticate(ctx context.Context, candidate []byte, refs *ReferenceSet) (Verdict, error) {
	if refs.Len() == 0 {
		return Verdict{}, ErrNoReferences
	}

	gray, err := e.loader.Load("candidate", candidate)
	if err != nil {
		return Verdict{}, err
	}
	quality := e.quality.Measure(gray)
	features := e.extractor.Extract(gray)

	log := logger.FromContext(ctx)
	if features.Empty() {
		verdict := e.decider.NoFeatures()
		verdict.Quality = quality
		log.WithField("reason", verdict.Reason).Info("Candidate has no features")
		return verdict, nil
	}
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}

	notes := refs.Notes()
	scores := make([]Score, len(notes))
	e.parallel(len(notes), func(i int) {
		ref := notes[i].Features
		matches := e.matcher.Match(features.Descriptors, ref.Descriptors)
		scores[i] = e.scorer.Score(notes[i].Label, notes[i].Source, matches, features.Len(), ref.Len())
	})
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}

	for _, s := range scores {
		log.WithFields(logrus.Fields{
			"reference":    s.Source,
			"label":        s.Label,
			"good_matches": s.GoodMatches,
			"score":        s.Value,
		}).Debug("Reference compared")
	}

	verdict, err := e.decider.Decide(scores)
	if err != nil {
		return Verdict{}, err
	}
	verdict.CandidateFeatures = features.Len()
	verdict.Quality = quality

	log.WithFields(logrus.Fields{
		"genuine":      verdict.Genuine,
		"denomination": verdict.Denomination,
		"score":        verdict.Score,
		"reason":       verdict.Reason,
	}).Info("Verdict reached")
	return verdict, nil
}

// AuthenticateImages is the uncached path: build, then authenticate
func (e *engine) AuthenticateImages(ctx context.Context, candidate []byte, refs []ReferenceImage) (Verdict, error) {
	set, err := e.BuildReferenceSet(ctx, refs)
	if err != nil {
		return Verdict{}, err
	}
	return e.Authenticate(ctx, candidate, set)
}

// parallel runs fn(0..n-1) on the worker pool and waits for all of them.
// Jobs refused by a closed pool run on the caller's goroutine.
func (e *engine) parallel(n int, fn func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		job := func() {
			defer wg.Done()
			fn(i)
		}
		if !e.pool.Submit(job) {
			job()
		}
	}
	wg.Wait()
}
