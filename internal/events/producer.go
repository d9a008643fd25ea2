package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// MediaStatusChanged is published whenever a staged item commits a status
// transition.
type MediaStatusChanged struct {
	EventID    string    `json:"event_id"`
	MediaID    string    `json:"media_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ListingCreated is published after the backend accepts a new listing.
type ListingCreated struct {
	EventID    string    `json:"event_id"`
	ListingID  string    `json:"listing_id"`
	SellerID   string    `json:"seller_id"`
	MediaCount int       `json:"media_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Producer publishes lifecycle events to kafka. A nil Producer is valid
// and publishes nothing, so deployments without a broker lose only
// observability.
type Producer struct {
	writer *kafkago.Writer
	log    zerolog.Logger
}

func NewProducer(brokers []string, topic string, log zerolog.Logger) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	return &Producer{
		writer: &kafkago.Writer{
			Addr:     kafkago.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafkago.LeastBytes{},
		},
		log: log,
	}
}

// publishTimeout caps how long one publish may block on the broker, so
// an unreachable cluster cannot stall the request or upload path.
const publishTimeout = 2 * time.Second

func (p *Producer) publish(ctx context.Context, key string, event any) error {
	if p == nil {
		return nil
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// MediaStatus publishes a MediaStatusChanged event, best-effort.
func (p *Producer) MediaStatus(ctx context.Context, mediaID, from, to string) {
	if p == nil {
		return
	}
	event := MediaStatusChanged{
		EventID:    uuid.NewString(),
		MediaID:    mediaID,
		From:       from,
		To:         to,
		OccurredAt: time.Now(),
	}
	if err := p.publish(ctx, mediaID, event); err != nil {
		p.log.Warn().Err(err).Str("media_id", mediaID).Msg("failed to publish media status event")
	}
}

// Listing publishes a ListingCreated event, best-effort.
func (p *Producer) Listing(ctx context.Context, listingID, sellerID string, mediaCount int) {
	if p == nil {
		return
	}
	event := ListingCreated{
		EventID:    uuid.NewString(),
		ListingID:  listingID,
		SellerID:   sellerID,
		MediaCount: mediaCount,
		OccurredAt: time.Now(),
	}
	if err := p.publish(ctx, listingID, event); err != nil {
		p.log.Warn().Err(err).Str("listing_id", listingID).Msg("failed to publish listing event")
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
