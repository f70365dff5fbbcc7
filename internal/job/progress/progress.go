// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// Package progress implements the Redis pub/sub progress broadcaster
// supplementing the Persistent Store's heartbeat (§6.1, §11): any number of
// out-of-process observers (a CLI `--follow`, an out-of-scope HTTP server)
// can watch a job's progress without polling the store.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Update is one progress checkpoint published for a job.
type Update struct {
	JobID           string         `json:"job_id"`
	PercentComplete float64        `json:"percent_complete"`
	Detail          map[string]any `json:"detail,omitempty"`
	PublishedAt     time.Time      `json:"published_at"`
}

// channelFor names the channel a job's updates are published to, per §11's
// `vpo:job:<id>:progress` convention.
func channelFor(jobID string) string {
	return fmt.Sprintf("vpo:job:%s:progress", jobID)
}

// Broadcaster publishes progress updates for jobs the worker is running.
// A nil *Broadcaster is valid and silently drops every Publish call, so
// wiring progress broadcasting into the worker stays optional (§7: redis
// unavailability must never fail a job).
type Broadcaster struct {
	client *redis.Client
}

// NewBroadcaster wraps an existing Redis client. The caller owns the
// client's lifecycle (Close).
func NewBroadcaster(client *redis.Client) *Broadcaster {
	return &Broadcaster{client: client}
}

// Publish sends an Update to jobID's progress channel. A publish error is
// returned, not swallowed, so the worker can decide whether to log it —
// but per §7 it must never be treated as a job-execution failure.
func (b *Broadcaster) Publish(ctx context.Context, jobID string, percent float64, detail map[string]any) error {
	if b == nil || b.client == nil {
		return nil
	}
	data, err := json.Marshal(Update{
		JobID:           jobID,
		PercentComplete: percent,
		Detail:          detail,
		PublishedAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("progress: marshal update: %w", err)
	}
	return b.client.Publish(ctx, channelFor(jobID), data).Err()
}

// Subscriber reads Updates for one job until the caller stops consuming or
// ctx is cancelled.
type Subscriber struct {
	pubsub *redis.PubSub
	ch     <-chan *redis.Message
}

// Subscribe opens a subscription to jobID's progress channel.
func (b *Broadcaster) Subscribe(ctx context.Context, jobID string) (*Subscriber, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("progress: no redis client configured")
	}
	ps := b.client.Subscribe(ctx, channelFor(jobID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("progress: subscribe: %w", err)
	}
	return &Subscriber{pubsub: ps, ch: ps.Channel()}, nil
}

// Next blocks until the next Update arrives, ctx is cancelled, or the
// subscription closes. ok is false once no further updates will arrive.
func (s *Subscriber) Next(ctx context.Context) (Update, bool) {
	select {
	case msg, open := <-s.ch:
		if !open {
			return Update{}, false
		}
		var u Update
		if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
			return Update{}, false
		}
		return u, true
	case <-ctx.Done():
		return Update{}, false
	}
}

func (s *Subscriber) Close() error {
	return s.pubsub.Close()
}
