package investigation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/flagflow/ml-service/internal/analysis"
	"github.com/flagflow/ml-service/internal/config"
	"github.com/flagflow/ml-service/internal/domain"
	"github.com/flagflow/ml-service/internal/pkg/logger"
	"github.com/flagflow/ml-service/internal/tracker"
)

// Engine runs one full investigation: pattern-memory recall, the four
// analyzer families in parallel, aggregation into a verdict, and the
// write-behind side effects (audit persistence, event publishing, pattern
// learning). Every collaborator past the analyzers is advisory: its failure
// is logged and the investigation still produces a verdict.
type Engine struct {
	detector   *analysis.Detector
	aggregator *analysis.Aggregator
	memory     domain.PatternMemory
	repo       domain.AssessmentRepository
	publisher  domain.EventPublisher
	tracker    *tracker.Tracker

	scoringCfg  *config.ScoringConfig
	patternsCfg *config.PatternsConfig
	log         *logger.Logger
	tracer      trace.Tracer

	// Metrics
	investigationCount int64
	avgLatencyMs       float64
	latencyMu          sync.RWMutex
}

// NewEngine creates an investigation engine. The repository and publisher
// may be nil; the corresponding side effects are skipped.
func NewEngine(
	detector *analysis.Detector,
	aggregator *analysis.Aggregator,
	memory domain.PatternMemory,
	repo domain.AssessmentRepository,
	publisher domain.EventPublisher,
	trk *tracker.Tracker,
	scoringCfg *config.ScoringConfig,
	patternsCfg *config.PatternsConfig,
	log *logger.Logger,
) *Engine {
	return &Engine{
		detector:    detector,
		aggregator:  aggregator,
		memory:      memory,
		repo:        repo,
		publisher:   publisher,
		tracker:     trk,
		scoringCfg:  scoringCfg,
		patternsCfg: patternsCfg,
		log:         log.Named("investigation_engine"),
		tracer:      otel.Tracer("investigation"),
	}
}

// Investigate scores one transaction's feature record and returns the
// investigation result. It never fails on pattern-memory or side-effect
// errors; the only way to get a non-nil error is context cancellation.
func (e *Engine) Investigate(ctx context.Context, features *domain.TransactionFeatures) (*domain.InvestigationResult, error) {
	startTime := time.Now()
	investigationID := uuid.New()

	ctx, span := e.tracer.Start(ctx, "investigation.score")
	defer span.End()

	e.log.InvestigationStarted(investigationID.String(), features.Amount, features.TransactionType)

	// 1. Recall similar patterns (advisory; empty on backend outage)
	tx := transactionFromFeatures(features)
	similar := e.memory.GetSimilarPatterns(ctx, []domain.Transaction{tx}, e.patternsCfg.ConfidenceThreshold)
	for _, p := range similar {
		e.log.PatternDetected(string(p.Type), p.Confidence)
	}

	// 2. Run the four analyzer families in parallel
	bundle := &domain.PatternAnalysisBundle{}
	g, _ := errgroup.WithContext(ctx)

	e.runFamily(g, investigationID, "transactional", func() {
		bundle.Transactional = e.detector.AnalyzeTransactionPatterns(features)
	})
	e.runFamily(g, investigationID, "behavioral", func() {
		bundle.Behavioral = e.detector.AssessBehavioralPatterns(features)
	})
	e.runFamily(g, investigationID, "network", func() {
		bundle.Network = e.detector.DetectNetworkPatterns(features)
	})
	e.runFamily(g, investigationID, "typology", func() {
		bundle.Typology = e.detector.ScoreAgainstTypologies(features)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Aggregate into a verdict
	assessment := e.aggregator.Aggregate(bundle)

	durationMs := time.Since(startTime).Milliseconds()
	e.recordLatency(durationMs)
	if budget := e.scoringCfg.MaxScoringLatency.Milliseconds(); durationMs > budget {
		e.log.LatencyWarning("full_investigation", durationMs, budget)
	}

	result := &domain.InvestigationResult{
		ID:              investigationID,
		Bundle:          bundle,
		Assessment:      assessment,
		SimilarPatterns: similar,
		DurationMs:      durationMs,
		CreatedAt:       time.Now(),
	}

	span.SetAttributes(
		attribute.String("investigation.id", investigationID.String()),
		attribute.Float64("investigation.risk_score", assessment.OverallRiskScore),
		attribute.String("investigation.risk_level", string(assessment.RiskLevel)),
	)

	// 4. Write-behind side effects; none may block the verdict
	e.learnPattern(ctx, tx, similar)
	e.persistResult(ctx, result)
	e.publishResult(ctx, result)
	e.storeMetrics(ctx, result)

	e.log.InvestigationCompleted(
		investigationID.String(),
		string(assessment.RiskLevel),
		string(assessment.SARRecommendation),
		assessment.OverallRiskScore,
		durationMs,
	)

	return result, nil
}

// runFamily schedules one analyzer family on the errgroup, tracked as an
// operation for the duration of its run
func (e *Engine) runFamily(g *errgroup.Group, investigationID uuid.UUID, category string, analyze func()) {
	opID := investigationID.String() + ":" + category
	g.Go(func() error {
		e.tracker.TrackOperation(opID, category, investigationID.String())
		analyze()
		e.tracker.CompleteOperation(opID, "", investigationID.String(), category)
		return nil
	})
}

// learnPattern records the transaction's features for future recall when the
// recalled pattern context was strong enough
func (e *Engine) learnPattern(ctx context.Context, tx domain.Transaction, similar []domain.SimilarPattern) {
	for _, p := range similar {
		if p.Confidence > e.patternsCfg.ConfidenceThreshold {
			e.memory.StorePattern(ctx, domain.PatternTypeTransaction, tx.LearnableFeatures(), 0.8, 0.9)
			return
		}
	}
}

func (e *Engine) persistResult(ctx context.Context, result *domain.InvestigationResult) {
	if e.repo == nil {
		return
	}
	if err := e.repo.SaveAssessment(ctx, result); err != nil {
		e.log.WithInvestigation(result.ID.String()).Warn("failed to persist assessment", logger.ErrorField(err))
	}
}

func (e *Engine) publishResult(ctx context.Context, result *domain.InvestigationResult) {
	if e.publisher == nil {
		return
	}
	log := e.log.WithInvestigation(result.ID.String())
	if err := e.publisher.PublishAssessment(ctx, result); err != nil {
		log.Warn("failed to publish assessment event", logger.ErrorField(err))
	}
	if result.Assessment.SARRecommendation == domain.SARFile {
		if err := e.publisher.PublishAlert(ctx, result); err != nil {
			log.Warn("failed to publish alert", logger.ErrorField(err))
		}
	}
}

func (e *Engine) storeMetrics(ctx context.Context, result *domain.InvestigationResult) {
	e.memory.StoreInvestigationMetrics(ctx, result.ID.String(), domain.InvestigationMetrics{
		DurationSeconds: float64(result.DurationMs) / 1000,
		AgentsSpawned:   4,
		PatternsMatched: len(result.SimilarPatterns),
		RiskLevel:       result.Assessment.RiskLevel,
	})
}

// recordLatency folds one run's latency into the EMA average
func (e *Engine) recordLatency(durationMs int64) {
	e.latencyMu.Lock()
	defer e.latencyMu.Unlock()

	e.investigationCount++
	e.avgLatencyMs = e.avgLatencyMs*0.9 + float64(durationMs)*0.1
}

// AverageLatencyMs returns the EMA of investigation latency
func (e *Engine) AverageLatencyMs() float64 {
	e.latencyMu.RLock()
	defer e.latencyMu.RUnlock()
	return e.avgLatencyMs
}

// InvestigationCount returns total investigations performed
func (e *Engine) InvestigationCount() int64 {
	e.latencyMu.RLock()
	defer e.latencyMu.RUnlock()
	return e.investigationCount
}

func transactionFromFeatures(f *domain.TransactionFeatures) domain.Transaction {
	return domain.Transaction{
		Amount:       f.Amount,
		FromEntity:   f.FromEntity,
		ToEntity:     f.ToEntity,
		FromLocation: f.FromLocation,
		ToLocation:   f.ToLocation,
	}
}
