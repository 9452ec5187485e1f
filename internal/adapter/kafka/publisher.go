// Package kafka publishes derived inflow series to a Kafka topic for
// downstream model consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/tarnmoor/hydro-inflow-etl/internal/config"
	"github.com/tarnmoor/hydro-inflow-etl/internal/domain"
)

// Publisher produces one message per plant series.
// It implements pipeline.SeriesPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured series topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishSeries serializes and publishes all series in a single
// WriteMessages call for efficiency.
func (p *Publisher) PublishSeries(ctx context.Context, series []domain.InflowSeries) error {
	if len(series) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(series))
	for i := range series {
		msg, err := serializeToMessage(series[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish inflow series: %w", err)
	}
	p.logger.Debug("series published", "count", len(series))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an InflowSeries into a Kafka message keyed by
// plant ID, with headers so consumers can route without decoding the body.
func serializeToMessage(s domain.InflowSeries) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize inflow series: %w", err)
	}
	var year string
	if len(s.Steps) > 0 {
		year = strconv.Itoa(s.Steps[0].UTC().Year())
	}
	return kafkago.Message{
		Key:   []byte(s.PlantID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "country_code", Value: []byte(s.Country)},
			{Key: "plant_type", Value: []byte(s.Type)},
			{Key: "year", Value: []byte(year)},
		},
	}, nil
}
