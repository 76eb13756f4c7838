package consumer

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	v1 "scholarbridge/shared/contracts/realtime/v1"
)

func eventFrame(t *testing.T, payloadID, ts int64) []byte {
	t.Helper()
	b, err := json.Marshal(v1.CommentEventFrame{
		Type:      v1.TypeNewComment,
		ContentID: 1,
		Comment:   json.RawMessage(fmt.Sprintf(`{"id":%d,"text":"hi"}`, payloadID)),
		Timestamp: ts,
		Signature: "deadbeef",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestConsumer_DuplicateAppliedOnce(t *testing.T) {
	applied := 0
	c := New(nil, func(v1.CommentEventFrame) { applied++ }, nil)

	frame := eventFrame(t, 10, time.Now().UnixMilli())

	if err := c.Handle(frame); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := c.Handle(frame); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second delivery err=%v, want ErrDuplicate", err)
	}
	if applied != 1 {
		t.Fatalf("applied=%d, want exactly once", applied)
	}
}

func TestConsumer_StaleDiscarded(t *testing.T) {
	applied := 0
	c := New(nil, func(v1.CommentEventFrame) { applied++ }, nil)

	old := time.Now().Add(-time.Minute).UnixMilli()
	if err := c.Handle(eventFrame(t, 10, old)); !errors.Is(err, ErrStale) {
		t.Fatalf("err=%v, want ErrStale", err)
	}
	if applied != 0 {
		t.Fatalf("stale event applied")
	}
}

func TestConsumer_MissingFields(t *testing.T) {
	c := New(nil, func(v1.CommentEventFrame) { t.Fatalf("apply called") }, nil)

	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{broken`},
		{"wrong type", `{"type":"welcome","comment":{"id":1},"timestamp":1,"signature":"s"}`},
		{"no signature", `{"type":"new-comment","comment":{"id":1},"timestamp":1}`},
		{"no timestamp", `{"type":"new-comment","comment":{"id":1},"signature":"s"}`},
		{"no comment", `{"type":"new-comment","timestamp":1,"signature":"s"}`},
		{"no comment id", `{"type":"new-comment","comment":{"text":"x"},"timestamp":1,"signature":"s"}`},
	}
	for _, tc := range cases {
		if err := c.Handle([]byte(tc.raw)); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("%s: err=%v, want ErrMissingFields", tc.name, err)
		}
	}
}

func TestConsumer_SameTimestampDistinctPayloads(t *testing.T) {
	applied := 0
	c := New(nil, func(v1.CommentEventFrame) { applied++ }, nil)

	ts := time.Now().UnixMilli()
	if err := c.Handle(eventFrame(t, 1, ts)); err != nil {
		t.Fatalf("payload 1: %v", err)
	}
	if err := c.Handle(eventFrame(t, 2, ts)); err != nil {
		t.Fatalf("payload 2: %v", err)
	}
	if applied != 2 {
		t.Fatalf("applied=%d, want 2", applied)
	}
}

func TestConsumer_RedeliveryToTwoConsumers(t *testing.T) {
	appliedA, appliedB := 0, 0
	a := New(nil, func(v1.CommentEventFrame) { appliedA++ }, nil)
	b := New(nil, func(v1.CommentEventFrame) { appliedB++ }, nil)

	frame := eventFrame(t, 77, time.Now().UnixMilli())

	// Each consumer sees the broadcast twice; guards are per-consumer.
	for _, c := range []*Consumer{a, b} {
		if err := c.Handle(frame); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		if err := c.Handle(frame); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("redelivery err=%v, want ErrDuplicate", err)
		}
	}
	if appliedA != 1 || appliedB != 1 {
		t.Fatalf("applied A=%d B=%d, want exactly once each", appliedA, appliedB)
	}
}

func TestGuard_LateRedeliveryIsDuplicateNotStale(t *testing.T) {
	g := NewGuard()
	now := time.Now()
	ts := now.UnixMilli()

	if err := g.Admit(5, ts, now); err != nil {
		t.Fatalf("first admit: %v", err)
	}

	// Redelivered after the freshness horizon: the replay set wins over the
	// staleness check.
	later := now.Add(guardFreshness + time.Second)
	if err := g.Admit(5, ts, later); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("late redelivery err=%v, want ErrDuplicate", err)
	}

	// An unseen event that old is still stale.
	if err := g.Admit(6, ts, later); !errors.Is(err, ErrStale) {
		t.Fatalf("unseen old event err=%v, want ErrStale", err)
	}
}

func TestGuard_EvictsOldestHalfWhenFull(t *testing.T) {
	g := NewGuard()
	now := time.Now()
	ts := now.UnixMilli()

	for i := int64(0); i < int64(guardMaxEntries); i++ {
		if err := g.Admit(i, ts, now); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	if g.Len() != guardMaxEntries {
		t.Fatalf("len=%d, want %d", g.Len(), guardMaxEntries)
	}

	// The next admit evicts the oldest half first.
	if err := g.Admit(int64(guardMaxEntries), ts, now); err != nil {
		t.Fatalf("admit over capacity: %v", err)
	}
	if got, want := g.Len(), guardMaxEntries/2+1; got != want {
		t.Fatalf("len=%d, want %d after eviction", got, want)
	}

	// Evicted entries are forgotten: an early payload admits again.
	if err := g.Admit(0, ts, now); err != nil {
		t.Fatalf("evicted entry still remembered: %v", err)
	}
	// Recent entries are still guarded.
	if err := g.Admit(int64(guardMaxEntries-1), ts, now); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("recent entry err=%v, want ErrDuplicate", err)
	}
}
