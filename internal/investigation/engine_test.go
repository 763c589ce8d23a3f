package investigation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagflow/ml-service/internal/analysis"
	"github.com/flagflow/ml-service/internal/config"
	"github.com/flagflow/ml-service/internal/domain"
	"github.com/flagflow/ml-service/internal/pkg/logger"
	"github.com/flagflow/ml-service/internal/tracker"
)

// fakeMemory is an in-memory PatternMemory test double. When failing is set
// every operation behaves like a backend outage.
type fakeMemory struct {
	mu      sync.Mutex
	failing bool
	similar []domain.SimilarPattern

	storedPatterns []domain.PatternType
	storedMetrics  []domain.InvestigationMetrics
}

func (m *fakeMemory) StorePattern(_ context.Context, patternType domain.PatternType, _ map[string]any, _, _ float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return false
	}
	m.storedPatterns = append(m.storedPatterns, patternType)
	return true
}

func (m *fakeMemory) GetSimilarPatterns(_ context.Context, _ []domain.Transaction, _ float64) []domain.SimilarPattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil
	}
	return m.similar
}

func (m *fakeMemory) UpdatePatternConfidence(_ context.Context, _ string, _ bool) bool {
	return !m.failing
}

func (m *fakeMemory) GetAllPatterns(_ context.Context) []domain.StoredPattern { return nil }

func (m *fakeMemory) StoreEntityReputation(_ context.Context, _ string, _ domain.EntityReputation) bool {
	return !m.failing
}

func (m *fakeMemory) GetEntityReputation(_ context.Context, _ string) (*domain.EntityReputation, bool) {
	return nil, false
}

func (m *fakeMemory) StoreSuccessfulQuery(_ context.Context, _, _ string, _ float64) bool {
	return !m.failing
}

func (m *fakeMemory) GetBestQueries(_ context.Context, _ string, _ int) []string { return nil }

func (m *fakeMemory) StoreInvestigationMetrics(_ context.Context, _ string, metrics domain.InvestigationMetrics) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return false
	}
	m.storedMetrics = append(m.storedMetrics, metrics)
	return true
}

func (m *fakeMemory) Ping(_ context.Context) error {
	if m.failing {
		return errors.New("connection refused")
	}
	return nil
}

type fakeRepo struct {
	err   error
	saved []*domain.InvestigationResult
}

func (r *fakeRepo) SaveAssessment(_ context.Context, result *domain.InvestigationResult) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, result)
	return nil
}

type fakePublisher struct {
	err         error
	assessments int
	alerts      int
}

func (p *fakePublisher) PublishAssessment(_ context.Context, _ *domain.InvestigationResult) error {
	if p.err != nil {
		return p.err
	}
	p.assessments++
	return nil
}

func (p *fakePublisher) PublishAlert(_ context.Context, _ *domain.InvestigationResult) error {
	if p.err != nil {
		return p.err
	}
	p.alerts++
	return nil
}

func testConfigs() (*config.ScoringConfig, *config.PatternsConfig) {
	scoring := &config.ScoringConfig{
		TransactionalWeight:    0.30,
		BehavioralWeight:       0.25,
		NetworkWeight:          0.25,
		TypologyWeight:         0.20,
		HighIndicatorThreshold: 70,
		TopRiskFactors:         5,
		MaxScoringLatency:      200 * time.Millisecond,
	}
	patterns := &config.PatternsConfig{
		ConfidenceThreshold: 0.7,
		PatternTTL:          720 * time.Hour,
		MetricsTTL:          168 * time.Hour,
		EMAAlpha:            0.1,
		MaxStoredQueries:    20,
		LookupTimeout:       500 * time.Millisecond,
	}
	return scoring, patterns
}

func newTestEngine(mem *fakeMemory, repo domain.AssessmentRepository, pub domain.EventPublisher) (*Engine, *tracker.Tracker) {
	scoring, patterns := testConfigs()
	log := logger.NewNop()
	trk := tracker.New(log)
	engine := NewEngine(
		analysis.NewDetector(analysis.DefaultRuleset()),
		analysis.NewAggregator(scoring),
		mem, repo, pub, trk,
		scoring, patterns, log,
	)
	return engine, trk
}

func suspiciousFeatures() *domain.TransactionFeatures {
	return &domain.TransactionFeatures{
		Amount:             50000,
		TransactionType:    "wire_transfer",
		BitcoinWallet:      "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
		ToJurisdictionRisk: domain.JurisdictionRiskHigh,
		StatedPurpose:      "charitable donation",
		ClaimedExperience:  domain.ExperienceFirstTime,
		CustomerExperience: domain.ExperienceFirstTime,
	}
}

func benignFeatures() *domain.TransactionFeatures {
	return &domain.TransactionFeatures{
		Amount:          5000,
		TransactionType: "cash_deposit",
	}
}

func TestInvestigate_BenignTransaction(t *testing.T) {
	mem := &fakeMemory{}
	engine, trk := newTestEngine(mem, nil, nil)

	result, err := engine.Investigate(context.Background(), benignFeatures())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, domain.RiskLevelLow, result.Assessment.RiskLevel)
	assert.Equal(t, domain.SARMonitor, result.Assessment.SARRecommendation)
	assert.NotNil(t, result.Bundle.Transactional)
	assert.NotNil(t, result.Bundle.Behavioral)
	assert.NotNil(t, result.Bundle.Network)
	assert.NotNil(t, result.Bundle.Typology)

	// All four family operations completed and were drained from the tracker
	assert.Equal(t, 0, trk.ActiveCount())
	metrics := trk.Metrics()
	for _, category := range []string{"transactional", "behavioral", "network", "typology"} {
		assert.Equal(t, int64(1), metrics.AgentMetrics[category].SpawnCount, category)
	}

	require.Len(t, mem.storedMetrics, 1)
	assert.Equal(t, 4, mem.storedMetrics[0].AgentsSpawned)
	assert.Equal(t, domain.RiskLevelLow, mem.storedMetrics[0].RiskLevel)

	assert.Equal(t, int64(1), engine.InvestigationCount())
}

func TestInvestigate_SuspiciousTransactionPublishesAlert(t *testing.T) {
	mem := &fakeMemory{}
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	engine, _ := newTestEngine(mem, repo, pub)

	result, err := engine.Investigate(context.Background(), suspiciousFeatures())
	require.NoError(t, err)

	assert.Equal(t, domain.SARFile, result.Assessment.SARRecommendation)
	assert.Equal(t, 1, pub.assessments)
	assert.Equal(t, 1, pub.alerts, "a SAR filing recommendation emits an alert")
	require.Len(t, repo.saved, 1)
	assert.Equal(t, result.ID, repo.saved[0].ID)
}

func TestInvestigate_NoAlertBelowFilingThreshold(t *testing.T) {
	pub := &fakePublisher{}
	engine, _ := newTestEngine(&fakeMemory{}, nil, pub)

	_, err := engine.Investigate(context.Background(), benignFeatures())
	require.NoError(t, err)

	assert.Equal(t, 1, pub.assessments)
	assert.Zero(t, pub.alerts)
}

func TestInvestigate_PatternMemoryOutageIsAdvisory(t *testing.T) {
	mem := &fakeMemory{failing: true}
	engine, _ := newTestEngine(mem, nil, nil)

	result, err := engine.Investigate(context.Background(), suspiciousFeatures())
	require.NoError(t, err, "a memory outage must not abort scoring")
	require.NotNil(t, result)

	assert.Equal(t, domain.SARFile, result.Assessment.SARRecommendation)
	assert.Empty(t, result.SimilarPatterns)
}

func TestInvestigate_SideEffectFailuresDoNotFailVerdict(t *testing.T) {
	repo := &fakeRepo{err: errors.New("database down")}
	pub := &fakePublisher{err: errors.New("broker down")}
	engine, _ := newTestEngine(&fakeMemory{}, repo, pub)

	result, err := engine.Investigate(context.Background(), suspiciousFeatures())
	require.NoError(t, err)
	assert.Equal(t, domain.SARFile, result.Assessment.SARRecommendation)
}

func TestInvestigate_LearnsFromStrongPatternContext(t *testing.T) {
	mem := &fakeMemory{similar: []domain.SimilarPattern{
		{Type: domain.PatternTypeRoute, Confidence: 0.9},
	}}
	engine, _ := newTestEngine(mem, nil, nil)

	result, err := engine.Investigate(context.Background(), suspiciousFeatures())
	require.NoError(t, err)

	require.Len(t, result.SimilarPatterns, 1)
	require.Len(t, mem.storedPatterns, 1, "strong pattern context triggers learning")
	assert.Equal(t, domain.PatternTypeTransaction, mem.storedPatterns[0])
}

func TestInvestigate_WeakPatternContextIsNotLearned(t *testing.T) {
	mem := &fakeMemory{similar: []domain.SimilarPattern{
		{Type: domain.PatternTypeRoute, Confidence: 0.5},
	}}
	engine, _ := newTestEngine(mem, nil, nil)

	_, err := engine.Investigate(context.Background(), suspiciousFeatures())
	require.NoError(t, err)
	assert.Empty(t, mem.storedPatterns)
}

func TestInvestigate_CancelledContext(t *testing.T) {
	engine, _ := newTestEngine(&fakeMemory{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Investigate(ctx, benignFeatures())
	assert.Error(t, err)
}
