package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/CiviTrack/civitrack-back/services/workflow"
)

// Service layers the workflow's caching and event needs over a Client. A nil
// *Service is valid and disables both concerns, so the engine runs unchanged
// without Redis.
type Service struct {
	client  Client
	channel string
}

func NewService(client Client, eventChannel string) *Service {
	return &Service{client: client, channel: eventChannel}
}

// Publish sends a workflow event to the configured channel as JSON. The
// external notification service consumes it from there.
func (s *Service) Publish(ctx context.Context, event workflow.Event) error {
	if s == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// CacheJSON stores a JSON-serializable value under key for ttl.
func (s *Service) CacheJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		log.Printf("redis: marshal for cache key %s failed: %v", key, err)
		return
	}
	if err := s.client.Set(ctx, key, payload, ttl); err != nil {
		log.Printf("redis: cache set %s failed: %v", key, err)
	}
}

// GetJSON loads a cached value into out. Returns false on miss or error; a
// cache problem never fails the request.
func (s *Service) GetJSON(ctx context.Context, key string, out interface{}) bool {
	if s == nil {
		return false
	}
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if !IsMiss(err) {
			log.Printf("redis: cache get %s failed: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Printf("redis: cache decode %s failed: %v", key, err)
		return false
	}
	return true
}
