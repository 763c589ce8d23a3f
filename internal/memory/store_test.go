package memory

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagflow/ml-service/internal/config"
	"github.com/flagflow/ml-service/internal/domain"
	"github.com/flagflow/ml-service/internal/pkg/logger"
)

func testPatternsConfig() *config.PatternsConfig {
	return &config.PatternsConfig{
		ConfidenceThreshold: 0.7,
		PatternTTL:          720 * time.Hour,
		MetricsTTL:          168 * time.Hour,
		EMAAlpha:            0.1,
		MaxStoredQueries:    3,
		LookupTimeout:       500 * time.Millisecond,
		StructuringBandLow:  9900,
		StructuringBandHigh: 10000,
	}
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client, testPatternsConfig(), logger.NewNop()), mr
}

func storedFloat(t *testing.T, mr *miniredis.Miniredis, key, field string) float64 {
	t.Helper()
	raw := mr.HGet(key, field)
	v, err := strconv.ParseFloat(raw, 64)
	require.NoError(t, err, "field %s of %s: %q", field, key, raw)
	return v
}

func TestStorePattern_DetectionCountMonotonic(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	features := map[string]any{
		"amount":        9500.0,
		"from_location": "US",
		"to_location":   "KY",
		"routing":       "US-KY",
	}
	key := patternPrefix + string(domain.PatternTypeTransaction) + ":" + Fingerprint(features)

	for i := 1; i <= 3; i++ {
		require.True(t, store.StorePattern(ctx, domain.PatternTypeTransaction, features, 0.8, 0.9))
		assert.Equal(t, strconv.Itoa(i), mr.HGet(key, "detection_count"),
			"repeat detections of the same features must count up")
	}

	assert.InDelta(t, 0.8, storedFloat(t, mr, key, "confidence"), 1e-9)
	assert.InDelta(t, 0.9, storedFloat(t, mr, key, "success_rate"), 1e-9)
	assert.Equal(t, string(domain.PatternTypeTransaction), mr.HGet(key, "type"))
}

func TestStorePattern_SlidesRetentionWindow(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	features := map[string]any{"amount": 9500.0}
	key := patternPrefix + string(domain.PatternTypeTransaction) + ":" + Fingerprint(features)

	require.True(t, store.StorePattern(ctx, domain.PatternTypeTransaction, features, 0.8, 0.9))
	assert.Equal(t, 720*time.Hour, mr.TTL(key))

	mr.FastForward(24 * time.Hour)
	assert.Equal(t, 696*time.Hour, mr.TTL(key))

	// A repeat detection resets the full retention window
	require.True(t, store.StorePattern(ctx, domain.PatternTypeTransaction, features, 0.8, 0.9))
	assert.Equal(t, 720*time.Hour, mr.TTL(key))
}

func TestGetSimilarPatterns_RouteMatch(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.HSet("route:US-KY",
		"confidence", "0.9",
		"pattern", "frequent corridor",
		"success_rate", "0.8",
	)
	mr.HSet("route:US-CH",
		"confidence", "0.6",
		"pattern", "occasional corridor",
	)

	similar := store.GetSimilarPatterns(ctx, []domain.Transaction{
		{Amount: 5000, FromLocation: "US", ToLocation: "KY"},
	}, 0.7)

	require.Len(t, similar, 1)
	assert.Equal(t, domain.PatternTypeRoute, similar[0].Type)
	assert.Equal(t, "frequent corridor", similar[0].Pattern)
	assert.Equal(t, 0.9, similar[0].Confidence)
	assert.Equal(t, 0.8, similar[0].SuccessRate)

	// A stored route below the confidence threshold does not match
	similar = store.GetSimilarPatterns(ctx, []domain.Transaction{
		{Amount: 5000, FromLocation: "US", ToLocation: "CH"},
	}, 0.7)
	assert.Empty(t, similar)
}

func TestGetSimilarPatterns_StructuringBand(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.HSet(patternPrefix+"structuring:threshold", "confidence", "0.85")

	tests := []struct {
		name    string
		amount  float64
		matches bool
	}{
		{"inside band", 9950, true},
		{"band lower edge", 9900, true},
		{"band upper edge", 10000, true},
		{"below band", 9899, false},
		{"above band", 10001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			similar := store.GetSimilarPatterns(ctx, []domain.Transaction{
				{Amount: tt.amount, FromLocation: "US", ToLocation: "KY"},
			}, 0.7)
			if !tt.matches {
				assert.Empty(t, similar)
				return
			}
			require.Len(t, similar, 1)
			assert.Equal(t, domain.PatternTypeStructuring, similar[0].Type)
			assert.Equal(t, 0.85, similar[0].Confidence)
		})
	}
}

func TestUpdatePatternConfidence_AppliesEMAToStoredRecord(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	const fingerprint = "deadbeef00112233"
	key := patternPrefix + "transaction:" + fingerprint
	mr.HSet(key, "success_rate", "0.5", "confidence", "0.5")

	require.True(t, store.UpdatePatternConfidence(ctx, fingerprint, true))
	assert.InDelta(t, 0.55, storedFloat(t, mr, key, "success_rate"), 1e-9)
	assert.InDelta(t, 0.55, storedFloat(t, mr, key, "confidence"), 1e-9)

	require.True(t, store.UpdatePatternConfidence(ctx, fingerprint, false))
	// 0.9 * 0.55 = 0.495
	assert.InDelta(t, 0.495, storedFloat(t, mr, key, "success_rate"), 1e-9)
	assert.InDelta(t, 0.495, storedFloat(t, mr, key, "confidence"), 1e-9)
}

func TestStoreSuccessfulQuery_KeepsTopRanked(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	queries := []struct {
		template      string
		effectiveness float64
	}{
		{"query-a", 0.1},
		{"query-b", 0.2},
		{"query-c", 0.3},
		{"query-d", 0.4},
		{"query-e", 0.5},
	}
	for _, q := range queries {
		require.True(t, store.StoreSuccessfulQuery(ctx, "sanctions", q.template, q.effectiveness))
	}

	// Only the top three survive the trim, best first
	best := store.GetBestQueries(ctx, "sanctions", 10)
	assert.Equal(t, []string{"query-e", "query-d", "query-c"}, best)

	members, err := mr.ZMembers(queryPrefix + "sanctions")
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestEntityReputation_RoundTripCaseInsensitive(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.StoreEntityReputation(ctx, "Acme Corp", domain.EntityReputation{
		RiskScore:          72.5,
		SanctionsStatus:    "clear",
		AdverseMedia:       "none",
		InvestigationCount: 3,
	}))

	reputation, ok := store.GetEntityReputation(ctx, "acme corp")
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", reputation.EntityName)
	assert.Equal(t, 72.5, reputation.RiskScore)
	assert.Equal(t, int64(3), reputation.InvestigationCount)

	_, ok = store.GetEntityReputation(ctx, "unknown entity")
	assert.False(t, ok)
}

func TestStoreInvestigationMetrics_ShortRetention(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.True(t, store.StoreInvestigationMetrics(ctx, "inv-1", domain.InvestigationMetrics{
		DurationSeconds: 0.2,
		AgentsSpawned:   4,
		PatternsMatched: 1,
		RiskLevel:       domain.RiskLevelHigh,
	}))

	key := investigationPrefix + "inv-1"
	assert.Equal(t, "4", mr.HGet(key, "agents_spawned"))
	assert.Equal(t, string(domain.RiskLevelHigh), mr.HGet(key, "risk_level"))
	assert.Equal(t, 168*time.Hour, mr.TTL(key))
}

func TestStore_DegradesWhenBackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(client, testPatternsConfig(), logger.NewNop())
	mr.Close()

	ctx := context.Background()

	assert.False(t, store.StorePattern(ctx, domain.PatternTypeTransaction, map[string]any{"amount": 1.0}, 0.8, 0.9))
	assert.Empty(t, store.GetSimilarPatterns(ctx, []domain.Transaction{{Amount: 9950}}, 0.7))
	_, ok := store.GetEntityReputation(ctx, "acme")
	assert.False(t, ok)
	assert.Error(t, store.Ping(ctx))
}
