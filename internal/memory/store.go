package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/flagflow/ml-service/internal/config"
	"github.com/flagflow/ml-service/internal/domain"
	"github.com/flagflow/ml-service/internal/pkg/logger"
)

// Key prefixes. These are the wire contract with existing deployments and
// must not change.
const (
	patternPrefix       = "pattern:"
	entityPrefix        = "entity:"
	routePrefix         = "route:"
	queryPrefix         = "query:"
	investigationPrefix = "investigation:"
)

// Store is the Redis-backed pattern memory. Every operation degrades
// gracefully: a transient backend outage is logged and surfaced as a false
// success flag or an empty result, never as an error that aborts scoring.
// A circuit breaker short-circuits calls while the backend is down.
type Store struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	cfg     *config.PatternsConfig
	log     *logger.Logger
}

// NewClient creates a Redis client from configuration
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// NewStore creates a pattern memory store over the given Redis client
func NewStore(client *redis.Client, cfg *config.PatternsConfig, log *logger.Logger) *Store {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "pattern-memory",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Store{
		client:  client,
		breaker: breaker,
		cfg:     cfg,
		log:     log.Named("pattern_memory"),
	}
}

// StorePattern upserts a pattern record keyed by its content fingerprint.
// Repeat detections re-hash to the same key, increment the detection count,
// and slide the 30-day retention window forward.
func (s *Store) StorePattern(ctx context.Context, patternType domain.PatternType, features map[string]any, confidence, successRate float64) bool {
	serialized, err := json.Marshal(features)
	if err != nil {
		s.log.MemoryDegraded("store_pattern", err)
		return false
	}

	key := patternPrefix + string(patternType) + ":" + Fingerprint(features)

	err = s.execute(ctx, func(ctx context.Context) error {
		pipe := s.client.TxPipeline()
		pipe.HSet(ctx, key, map[string]any{
			"pattern":      string(serialized),
			"confidence":   confidence,
			"success_rate": successRate,
			"last_seen":    time.Now().UTC().Format(time.RFC3339),
			"type":         string(patternType),
		})
		pipe.HIncrBy(ctx, key, "detection_count", 1)
		pipe.Expire(ctx, key, s.cfg.PatternTTL)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		s.log.MemoryDegraded("store_pattern", err)
		return false
	}

	s.log.PatternStored(key, string(patternType))
	return true
}

// GetSimilarPatterns checks each transaction against known route patterns
// and the structuring heuristic. This is a best-effort advisory lookup:
// failures yield an empty result, never an error.
func (s *Store) GetSimilarPatterns(ctx context.Context, transactions []domain.Transaction, threshold float64) []domain.SimilarPattern {
	var similar []domain.SimilarPattern

	for i := range transactions {
		tx := &transactions[i]

		// Known routing patterns
		routeKey := routePrefix + tx.Route()
		routeData, err := s.hGetAll(ctx, routeKey)
		if err != nil {
			s.log.MemoryDegraded("get_similar_patterns", err)
			continue
		}
		if len(routeData) > 0 {
			confidence := parseFloat(routeData["confidence"], 0)
			if confidence > threshold {
				similar = append(similar, domain.SimilarPattern{
					Type:        domain.PatternTypeRoute,
					Pattern:     routeData["pattern"],
					Confidence:  confidence,
					SuccessRate: parseFloat(routeData["success_rate"], 0),
				})
			}
		}

		// Structuring heuristic: amount just below the reporting threshold
		if tx.Amount >= s.cfg.StructuringBandLow && tx.Amount <= s.cfg.StructuringBandHigh {
			structData, err := s.hGetAll(ctx, patternPrefix+"structuring:threshold")
			if err != nil {
				s.log.MemoryDegraded("get_similar_patterns", err)
				continue
			}
			if len(structData) > 0 {
				similar = append(similar, domain.SimilarPattern{
					Type:       domain.PatternTypeStructuring,
					Pattern:    "Amount near reporting threshold",
					Confidence: parseFloat(structData["confidence"], 0.8),
				})
			}
		}
	}

	return similar
}

// UpdatePatternConfidence locates every stored record matching the
// fingerprint across pattern types and applies an EMA update to its success
// rate and confidence
func (s *Store) UpdatePatternConfidence(ctx context.Context, fingerprint string, success bool) bool {
	err := s.execute(ctx, func(ctx context.Context) error {
		iter := s.client.Scan(ctx, 0, patternPrefix+"*:"+fingerprint, 100).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()

			successRate := 0.5
			if raw, err := s.client.HGet(ctx, key, "success_rate").Result(); err == nil {
				successRate = parseFloat(raw, 0.5)
			}

			newRate := emaUpdate(successRate, success, s.cfg.EMAAlpha)
			newConfidence := clampConfidence(newRate)

			if err := s.client.HSet(ctx, key, map[string]any{
				"confidence":   newConfidence,
				"success_rate": newRate,
			}).Err(); err != nil {
				return err
			}
		}
		return iter.Err()
	})
	if err != nil {
		s.log.MemoryDegraded("update_pattern_confidence", err)
		return false
	}
	return true
}

// GetAllPatterns returns every stored pattern sorted by confidence descending
func (s *Store) GetAllPatterns(ctx context.Context) []domain.StoredPattern {
	var patterns []domain.StoredPattern

	err := s.execute(ctx, func(ctx context.Context) error {
		iter := s.client.Scan(ctx, 0, patternPrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			data, err := s.client.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			if len(data) == 0 {
				continue
			}

			lastSeen, _ := time.Parse(time.RFC3339, data["last_seen"])
			patterns = append(patterns, domain.StoredPattern{
				Key:            key,
				Type:           domain.PatternType(data["type"]),
				Features:       data["pattern"],
				Confidence:     parseFloat(data["confidence"], 0),
				SuccessRate:    parseFloat(data["success_rate"], 0),
				DetectionCount: parseInt(data["detection_count"], 0),
				LastSeen:       lastSeen,
			})
		}
		return iter.Err()
	})
	if err != nil {
		s.log.MemoryDegraded("get_all_patterns", err)
		return nil
	}

	sort.Slice(patterns, func(i, j int) bool {
		return patterns[i].Confidence > patterns[j].Confidence
	})
	return patterns
}

// StoreEntityReputation upserts the sidecar reputation record for an entity.
// The key is case-insensitive on the entity name.
func (s *Store) StoreEntityReputation(ctx context.Context, entityName string, reputation domain.EntityReputation) bool {
	key := entityPrefix + strings.ToLower(entityName)

	err := s.execute(ctx, func(ctx context.Context) error {
		return s.client.HSet(ctx, key, map[string]any{
			"entity_name":         entityName,
			"risk_score":          reputation.RiskScore,
			"sanctions_status":    reputation.SanctionsStatus,
			"adverse_media":       reputation.AdverseMedia,
			"investigation_count": reputation.InvestigationCount,
			"last_updated":        time.Now().UTC().Format(time.RFC3339),
		}).Err()
	})
	if err != nil {
		s.log.MemoryDegraded("store_entity_reputation", err)
		return false
	}
	return true
}

// GetEntityReputation returns the reputation record for an entity, or false
// if none is stored or the backend is unavailable
func (s *Store) GetEntityReputation(ctx context.Context, entityName string) (*domain.EntityReputation, bool) {
	data, err := s.hGetAll(ctx, entityPrefix+strings.ToLower(entityName))
	if err != nil {
		s.log.MemoryDegraded("get_entity_reputation", err)
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	lastUpdated, _ := time.Parse(time.RFC3339, data["last_updated"])
	return &domain.EntityReputation{
		EntityName:         data["entity_name"],
		RiskScore:          parseFloat(data["risk_score"], 0),
		SanctionsStatus:    data["sanctions_status"],
		AdverseMedia:       data["adverse_media"],
		InvestigationCount: parseInt(data["investigation_count"], 0),
		LastUpdated:        lastUpdated,
	}, true
}

// StoreSuccessfulQuery records a query template ranked by effectiveness,
// keeping only the top entries per query type
func (s *Store) StoreSuccessfulQuery(ctx context.Context, queryType, queryTemplate string, effectiveness float64) bool {
	key := queryPrefix + queryType

	err := s.execute(ctx, func(ctx context.Context) error {
		pipe := s.client.TxPipeline()
		pipe.ZAdd(ctx, key, redis.Z{Score: effectiveness, Member: queryTemplate})
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.cfg.MaxStoredQueries-1))
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		s.log.MemoryDegraded("store_successful_query", err)
		return false
	}
	return true
}

// GetBestQueries returns the highest-ranked query templates for a query type
func (s *Store) GetBestQueries(ctx context.Context, queryType string, limit int) []string {
	var queries []string

	err := s.execute(ctx, func(ctx context.Context) error {
		var err error
		queries, err = s.client.ZRevRange(ctx, queryPrefix+queryType, 0, int64(limit-1)).Result()
		return err
	})
	if err != nil {
		s.log.MemoryDegraded("get_best_queries", err)
		return nil
	}
	return queries
}

// StoreInvestigationMetrics records the summary of a completed investigation
// with a short retention window
func (s *Store) StoreInvestigationMetrics(ctx context.Context, investigationID string, metrics domain.InvestigationMetrics) bool {
	key := investigationPrefix + investigationID

	err := s.execute(ctx, func(ctx context.Context) error {
		pipe := s.client.TxPipeline()
		pipe.HSet(ctx, key, map[string]any{
			"duration_seconds": metrics.DurationSeconds,
			"agents_spawned":   metrics.AgentsSpawned,
			"patterns_matched": metrics.PatternsMatched,
			"risk_level":       string(metrics.RiskLevel),
			"timestamp":        time.Now().UTC().Format(time.RFC3339),
		})
		pipe.Expire(ctx, key, s.cfg.MetricsTTL)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		s.log.MemoryDegraded("store_investigation_metrics", err)
		return false
	}
	return true
}

// Ping checks backend connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

// execute runs fn through the circuit breaker with the configured lookup
// timeout applied
func (s *Store) execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.cfg.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LookupTimeout)
		defer cancel()
	}

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func (s *Store) hGetAll(ctx context.Context, key string) (map[string]string, error) {
	var data map[string]string
	err := s.execute(ctx, func(ctx context.Context) error {
		var err error
		data, err = s.client.HGetAll(ctx, key).Result()
		return err
	})
	return data, err
}

func parseFloat(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseInt(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}
