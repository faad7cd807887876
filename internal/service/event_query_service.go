package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"elarocks/internal/dto"
	"elarocks/internal/kvstore"
	"elarocks/internal/schema"

	"github.com/rs/zerolog/log"
)

const (
	DefaultEventLimit = 10
	MaxEventLimit     = 1000

	fieldProcessID = "process_id"
	fieldUser      = "user"
	fieldHashes    = "hashes"
)

var ErrInvalidQuery = errors.New("invalid event query")

// latestQueryTime bounds open-ended windows from above.
var latestQueryTime = time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC)

// KeyLookup finds the keys of action saved within a time window.
type KeyLookup interface {
	Keys(ctx context.Context, action string, start, end time.Time) ([]string, error)
}

type EventQueryService interface {
	SearchEvents(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error)
}

type eventQueryService struct {
	registry *schema.Registry
	store    kvstore.Store
	index    KeyLookup
}

// NewEventQueryService scans the store directly unless index is non-nil.
func NewEventQueryService(registry *schema.Registry, store kvstore.Store, index KeyLookup) EventQueryService {
	return &eventQueryService{
		registry: registry,
		store:    store,
		index:    index,
	}
}

func (s *eventQueryService) SearchEvents(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	action, err := s.resolveAction(req)
	if err != nil {
		return nil, err
	}
	if req.EndTime.IsZero() {
		req.EndTime = latestQueryTime
	}
	if req.EndTime.Before(req.StartTime) {
		return nil, fmt.Errorf("%w: endTime cannot be before startTime", ErrInvalidQuery)
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Limit <= 0 {
		req.Limit = DefaultEventLimit
	}
	if req.Limit > MaxEventLimit {
		req.Limit = MaxEventLimit
	}

	log.Info().
		Str("action", action).
		Time("start_time", req.StartTime).
		Time("end_time", req.EndTime).
		Str("process_id", req.ProcessID).
		Str("user", req.User).
		Str("agent_id", req.AgentID).
		Int("offset", req.Offset).
		Int("limit", req.Limit).
		Msg("Searching events")

	entries, err := s.entries(ctx, action, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	resp := &dto.EventSearchResponse{
		Action: action,
		Events: []dto.Event{},
		Offset: req.Offset,
		Limit:  req.Limit,
	}
	for _, entry := range entries {
		fields := make(map[string]any)
		if err := json.Unmarshal(entry.Value, &fields); err != nil {
			log.Warn().Err(err).Str("key", entry.Key).Msg("Skipping undecodable stored record")
			continue
		}
		if !matches(fields, req) {
			continue
		}
		resp.TotalCount++
		if resp.TotalCount <= req.Offset || len(resp.Events) >= req.Limit {
			continue
		}
		resp.Events = append(resp.Events, toEvent(entry.Key, fields))
	}
	return resp, nil
}

func (s *eventQueryService) resolveAction(req dto.EventSearchRequest) (string, error) {
	switch {
	case req.Code != "":
		sch, err := s.registry.ForCode(req.Code)
		if err != nil {
			return "", err
		}
		return sch.ActionLabel(), nil
	case req.Action != "":
		sch, err := s.registry.ForAction(req.Action)
		if err != nil {
			return "", err
		}
		return sch.ActionLabel(), nil
	default:
		return "", fmt.Errorf("%w: action or code is required", ErrInvalidQuery)
	}
}

func (s *eventQueryService) entries(ctx context.Context, action string, start, end time.Time) ([]kvstore.Entry, error) {
	if s.index == nil {
		return s.store.Scan(ctx, action, start, end)
	}

	keys, err := s.index.Keys(ctx, action, start, end)
	if err != nil {
		return nil, err
	}
	entries := make([]kvstore.Entry, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		value, err := s.store.Get(ctx, key)
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			log.Warn().Str("key", key).Msg("Indexed key missing from key-value store")
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, kvstore.Entry{Key: key, Value: value})
	}
	return entries, nil
}

func matches(fields map[string]any, req dto.EventSearchRequest) bool {
	if req.ProcessID != "" && stringField(fields, fieldProcessID) != req.ProcessID {
		return false
	}
	if req.User != "" && stringField(fields, fieldUser) != req.User {
		return false
	}
	if req.AgentID != "" && !strings.Contains(stringField(fields, schema.FieldAgentID), req.AgentID) {
		return false
	}
	return true
}

func stringField(fields map[string]any, name string) string {
	v, _ := fields[name].(string)
	return v
}

func toEvent(key string, fields map[string]any) dto.Event {
	event := dto.Event{Key: key, Fields: fields}
	if raw := stringField(fields, fieldHashes); raw != "" {
		for _, h := range strings.Split(raw, ",") {
			if h = strings.TrimSpace(h); h != "" {
				event.Hashes = append(event.Hashes, h)
			}
		}
	}
	return event
}
