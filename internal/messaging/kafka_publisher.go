package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"linkgate/internal/domain"
)

// EventTypeClickRecorded is emitted once per stored click event
const EventTypeClickRecorded = "click.recorded"

// MessageEvent is the envelope written to Kafka
type MessageEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ClickRecordedPayload is the public part of a click event. The IP hash
// stays in the database.
type ClickRecordedPayload struct {
	ID               string    `json:"id"`
	ShortLinkID      uint      `json:"shortLinkId"`
	ShortCode        string    `json:"shortCode"`
	ClickedAt        time.Time `json:"clickedAt"`
	Fingerprint      string    `json:"fingerprint"`
	Country          string    `json:"country,omitempty"`
	Region           string    `json:"region,omitempty"`
	City             string    `json:"city,omitempty"`
	DeviceType       string    `json:"deviceType,omitempty"`
	Browser          string    `json:"browser,omitempty"`
	OS               string    `json:"os,omitempty"`
	Referrer         string    `json:"referrer,omitempty"`
	ScreenResolution string    `json:"screenResolution,omitempty"`
	ViaQR            bool      `json:"viaQr"`
	Unique           bool      `json:"unique"`
}

// KafkaPublisher sends click events to a Kafka topic
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a synchronous producer to brokers
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_8_1_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishClick sends a click.recorded event keyed by short code so a
// link's events stay ordered within one partition.
func (k *KafkaPublisher) PublishClick(ctx context.Context, event *domain.ClickEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(MessageEvent{
		Type:      EventTypeClickRecorded,
		Timestamp: time.Now().UTC(),
		Payload:   payloadOf(event),
	})
	if err != nil {
		return fmt.Errorf("failed to encode click event: %w", err)
	}

	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(event.ShortCode),
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		return fmt.Errorf("failed to publish click event: %w", err)
	}
	return nil
}

// Close closes the producer
func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}

func payloadOf(e *domain.ClickEvent) ClickRecordedPayload {
	return ClickRecordedPayload{
		ID:               e.ID,
		ShortLinkID:      e.ShortLinkID,
		ShortCode:        e.ShortCode,
		ClickedAt:        e.ClickedAt,
		Fingerprint:      e.Fingerprint,
		Country:          e.Country,
		Region:           e.Region,
		City:             e.City,
		DeviceType:       e.DeviceType,
		Browser:          e.Browser,
		OS:               e.OS,
		Referrer:         e.Referrer,
		ScreenResolution: e.ScreenResolution,
		ViaQR:            e.ViaQR,
		Unique:           e.Unique,
	}
}
