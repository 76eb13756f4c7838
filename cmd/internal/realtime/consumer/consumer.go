package consumer

import (
	"encoding/json"
	"log/slog"
	"time"

	v1 "scholarbridge/shared/contracts/realtime/v1"

	"scholarbridge/cmd/internal/metrics"
)

// ApplyFunc receives an admitted comment event exactly once.
type ApplyFunc func(frame v1.CommentEventFrame)

// Consumer decodes inbound comment-event frames, shape-checks them, filters
// replays through the Guard, and hands each admitted event to apply once.
//
// The signature is checked for presence and shape only. Consumers do not hold
// the signing key; producing a well-formed signature field is the transport
// contract, and end-to-end verification belongs to holders of the key.
type Consumer struct {
	log   *slog.Logger
	guard *Guard
	apply ApplyFunc
	met   *metrics.Collector
	clock func() time.Time
}

// New constructs a Consumer. apply must be non-nil; met may be nil.
func New(log *slog.Logger, apply ApplyFunc, met *metrics.Collector) *Consumer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Consumer{
		log:   log,
		guard: NewGuard(),
		apply: apply,
		met:   met,
		clock: time.Now,
	}
}

// Handle processes one raw frame off the wire. Discards are returned as
// admission errors; callers that only care about liveness may ignore them.
func (c *Consumer) Handle(raw []byte) error {
	var frame v1.CommentEventFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.met.ReplayDiscarded("malformed")
		return ErrMissingFields
	}
	if frame.Type != v1.TypeNewComment || frame.Signature == "" || frame.Timestamp <= 0 || len(frame.Comment) == 0 {
		c.met.ReplayDiscarded("missing_fields")
		return ErrMissingFields
	}

	payloadID, err := commentPayloadID(frame.Comment)
	if err != nil {
		c.met.ReplayDiscarded("missing_fields")
		return ErrMissingFields
	}

	if err := c.guard.Admit(payloadID, frame.Timestamp, c.clock()); err != nil {
		switch err {
		case ErrStale:
			c.met.ReplayDiscarded("stale")
			c.log.Warn("consumer.discard.stale", "payload_id", payloadID, "timestamp", frame.Timestamp)
		case ErrDuplicate:
			c.met.ReplayDiscarded("duplicate")
			c.log.Warn("consumer.discard.duplicate", "payload_id", payloadID, "timestamp", frame.Timestamp)
		}
		return err
	}

	c.apply(frame)
	return nil
}

// commentPayloadID extracts the numeric id from the comment payload.
func commentPayloadID(comment json.RawMessage) (int64, error) {
	var p struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(comment, &p); err != nil || p.ID == nil {
		return 0, ErrMissingFields
	}
	return *p.ID, nil
}
