package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// RecomputeMessage is the Pub/Sub payload for an operator-triggered
// recompute request.
type RecomputeMessage struct {
	Date string `json:"date"`
}

// Publisher implements query.RecomputePublisher by publishing to the
// recompute topic. internal/query depends only on its narrow
// PublishRecompute interface, not this concrete type.
type Publisher struct {
	topic *pubsub.Publisher
}

// NewPublisher builds a Publisher bound to cfg.RecomputeTopic.
func NewPublisher(ctx context.Context, client *pubsub.Client, cfg Config) *Publisher {
	return &Publisher{topic: client.Publisher(cfg.RecomputeTopic)}
}

// PublishRecompute publishes a recompute request for date.
func (p *Publisher) PublishRecompute(ctx context.Context, date time.Time) error {
	raw, err := json.Marshal(RecomputeMessage{Date: date.Format("2006-01-02")})
	if err != nil {
		return fmt.Errorf("scheduler: marshal recompute message: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: raw})
	_, err = result.Get(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: publish recompute message: %w", err)
	}
	return nil
}

// PubSubHandler subscribes to the recompute topic and runs the nightly job
// for the requested date whenever an operator triggers one early, adapted
// from the teacher's provider-refresh Pub/Sub listener.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	job              *Job
	filter           riskmodel.RouteFilter
	logger           zerolog.Logger
}

// NewPubSubHandler creates a PubSubHandler bound to cfg.RecomputeSubscription.
func NewPubSubHandler(ctx context.Context, client *pubsub.Client, job *Job, filter riskmodel.RouteFilter, cfg Config, logger zerolog.Logger) *PubSubHandler {
	subscriber := client.Subscriber(cfg.RecomputeSubscription)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 30 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.RecomputeSubscription,
		job:              job,
		filter:           filter,
		logger:           logger,
	}
}

// Start begins processing recompute requests. It blocks until ctx is
// cancelled or the subscriber returns an error.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().Str("subscription", h.subscriptionName).Msg("scheduler: pubsub recompute handler started")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := h.logger.With().Str("message_id", msg.ID).Logger()

	var recompute RecomputeMessage
	if err := json.Unmarshal(msg.Data, &recompute); err != nil {
		logger.Error().Err(err).Msg("scheduler: failed to parse recompute message")
		msg.Nack()
		return
	}

	date, err := time.Parse("2006-01-02", recompute.Date)
	if err != nil {
		logger.Error().Err(err).Str("date", recompute.Date).Msg("scheduler: invalid recompute date")
		msg.Nack()
		return
	}

	result := h.job.Run(ctx, date, h.filter)
	if result.Failed > result.Successful {
		logger.Error().
			Int("failed", result.Failed).
			Int("successful", result.Successful).
			Msg("scheduler: operator-triggered recompute had more failures than successes")
		msg.Nack()
		return
	}

	logger.Info().
		Time("date", date).
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Msg("scheduler: operator-triggered recompute completed")
	msg.Ack()
}
