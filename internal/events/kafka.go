package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/flagflow/ml-service/internal/config"
	"github.com/flagflow/ml-service/internal/domain"
)

// KafkaPublisher emits assessment events and SAR alerts to Kafka. Publishing
// is best effort from the caller's point of view: the investigation engine
// logs publish errors and keeps going.
type KafkaPublisher struct {
	producer    sarama.SyncProducer
	eventsTopic string
	alertsTopic string
}

// NewKafkaPublisher creates a synchronous producer against the configured brokers
func NewKafkaPublisher(cfg *config.KafkaConfig) (*KafkaPublisher, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Retry.Max = 3
	sc.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer:    producer,
		eventsTopic: cfg.EventsTopic,
		alertsTopic: cfg.AlertsTopic,
	}, nil
}

type assessmentEvent struct {
	EventType        string                   `json:"event_type"`
	InvestigationID  string                   `json:"investigation_id"`
	OverallRiskScore float64                  `json:"overall_risk_score"`
	RiskLevel        domain.RiskLevel         `json:"risk_level"`
	SAR              domain.SARRecommendation `json:"sar_filing_recommendation"`
	Confidence       domain.ConfidenceLevel   `json:"confidence_level"`
	RiskFactors      []string                 `json:"risk_factors_summary"`
	Timestamp        time.Time                `json:"timestamp"`
}

// PublishAssessment emits one event per completed investigation
func (p *KafkaPublisher) PublishAssessment(ctx context.Context, result *domain.InvestigationResult) error {
	return p.publish(ctx, p.eventsTopic, "risk_assessment_completed", result)
}

// PublishAlert emits a high-priority alert when an assessment recommends SAR filing
func (p *KafkaPublisher) PublishAlert(ctx context.Context, result *domain.InvestigationResult) error {
	return p.publish(ctx, p.alertsTopic, "sar_filing_recommended", result)
}

func (p *KafkaPublisher) publish(_ context.Context, topic, eventType string, result *domain.InvestigationResult) error {
	event := assessmentEvent{
		EventType:        eventType,
		InvestigationID:  result.ID.String(),
		OverallRiskScore: result.Assessment.OverallRiskScore,
		RiskLevel:        result.Assessment.RiskLevel,
		SAR:              result.Assessment.SARRecommendation,
		Confidence:       result.Assessment.ConfidenceLevel,
		RiskFactors:      result.Assessment.RiskFactorsSummary,
		Timestamp:        result.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(result.ID.String()),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	return nil
}

// Close shuts down the underlying producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
