package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/facetedsearch/internal/domain/entities"
	"github.com/zatekoja/facetedsearch/internal/domain/providers"
	"github.com/zatekoja/facetedsearch/internal/infrastructure/observability"
)

// ResponseCachePattern matches every cached HTTP response
const ResponseCachePattern = "http:cache:*"

// CacheInvalidationService flushes the response cache when the index changes.
// Events arrive over the bus so every instance drops its own cache.
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	source   string
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	done     chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service. source
// identifies this instance in published events.
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus, source string) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		source:   source,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelIndexUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to index updates: %w", err)
	}

	s.started = true
	go s.processEvents(eventChan)
	observability.LoggerFromContext(s.ctx).Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	if s.started {
		<-s.done
	}
	observability.LoggerFromContext(s.ctx).Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.IndexEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.IndexEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := observability.LoggerFromContext(ctx).With().
		Str("event_id", event.ID).
		Str("event_type", string(event.EventType)).
		Str("source", event.Source).
		Logger()

	switch event.EventType {
	case entities.IndexEventUpdated, entities.IndexEventCacheFlush:
	default:
		logger.Debug().Msg("ignoring event")
		return
	}

	removed, err := s.InvalidateSearchCaches(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate search caches")
		return
	}
	logger.Info().Int("removed", removed).Msg("invalidated search caches")
}

// InvalidateSearchCaches drops every cached search and facet response
func (s *CacheInvalidationService) InvalidateSearchCaches(ctx context.Context) (int, error) {
	removed, err := s.cache.DeletePattern(ctx, ResponseCachePattern)
	if err != nil {
		return removed, fmt.Errorf("failed to invalidate pattern %s: %w", ResponseCachePattern, err)
	}
	return removed, nil
}

// Announce publishes a flush so every instance invalidates its cache
func (s *CacheInvalidationService) Announce(ctx context.Context, eventType entities.IndexEventType) error {
	event := entities.NewIndexEvent(eventType, s.source)
	if err := s.eventBus.Publish(ctx, providers.EventChannelIndexUpdates, event); err != nil {
		return fmt.Errorf("failed to announce %s: %w", eventType, err)
	}
	return nil
}
