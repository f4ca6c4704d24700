package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/foliosearch/db/kvdb"
	"github.com/meghashyamc/foliosearch/logger"
	"github.com/meghashyamc/foliosearch/metrics"
)

const (
	ProgressStatusQueued   = 0
	ProgressStatusStep1    = 10
	ProgressStatusStep2    = 50
	ProgressStatusComplete = 100
	ProgressStatusFailed   = -1

	maxIndexBuildingTime = 5 * time.Minute
)

var ErrIndexingInProgress = errors.New("indexing already in progress")

type Service struct {
	logger        logger.Logger
	engine        Engine
	source        ContentSource
	indexer       Indexer
	metadataStore MetadataStore
	buildIndexC   chan indexRequest

	// building is set while a rebuild is queued or running.
	building atomic.Bool
}

type indexRequest struct {
	requestID string
}

// New starts the builder goroutine, which runs until ctx is done.
func New(ctx context.Context, logger logger.Logger, engine Engine, source ContentSource, indexer Indexer, metadataStore MetadataStore) *Service {
	indexService := &Service{
		logger:        logger,
		engine:        engine,
		source:        source,
		indexer:       indexer,
		metadataStore: metadataStore,
		buildIndexC:   make(chan indexRequest, 1),
	}

	go indexService.build(ctx)
	return indexService
}

// Initialize runs the first rebuild synchronously so the server starts with a
// populated index.
func (s *Service) Initialize(ctx context.Context) (string, error) {
	if !s.building.CompareAndSwap(false, true) {
		return "", ErrIndexingInProgress
	}
	defer s.building.Store(false)

	requestID := uuid.NewString()
	s.setRequestStatus(requestID, ProgressStatusQueued)

	indexTimeoutCtx, cancel := context.WithTimeout(ctx, maxIndexBuildingTime)
	defer cancel()

	return requestID, s.buildIndex(indexTimeoutCtx, requestID)
}

// Build queues an asynchronous rebuild. Only one rebuild runs at a time.
func (s *Service) Build(requestID string) error {
	if !s.building.CompareAndSwap(false, true) {
		s.logger.Warn("request to index while indexing is already in progress", "request_id", requestID)
		return ErrIndexingInProgress
	}

	s.setRequestStatus(requestID, ProgressStatusQueued)

	// This leads to s.buildIndex being called
	s.buildIndexC <- indexRequest{requestID: requestID}
	return nil
}

// GetStatus retrieves the progress of a rebuild in percent, or
// ProgressStatusFailed.
func (s *Service) GetStatus(requestID string) (int, error) {
	value, err := s.metadataStore.Get(kvdb.RequestsBucket, requestID)
	if err != nil {
		return 0, fmt.Errorf("request not found: %w", err)
	}

	status, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid status value: %w", err)
	}

	return status, nil
}

// GetMetadata returns what the last successful rebuild indexed.
func (s *Service) GetMetadata() (*kvdb.IndexMetadata, error) {
	value, err := s.metadataStore.Get(kvdb.MetadataBucket, kvdb.IndexMetadataKey)
	if err != nil {
		return nil, err
	}

	var metadata kvdb.IndexMetadata
	if err := json.Unmarshal([]byte(value), &metadata); err != nil {
		s.logger.Error("failed to unmarshal index metadata", "err", err.Error())
		return nil, fmt.Errorf("failed to unmarshal index metadata: %w", err)
	}

	return &metadata, nil
}

func (s *Service) build(ctx context.Context) {
	for {
		select {
		case req := <-s.buildIndexC:
			indexTimeoutCtx, cancel := context.WithTimeout(ctx, maxIndexBuildingTime)
			if err := s.buildIndex(indexTimeoutCtx, req.requestID); err != nil {
				s.logger.Error("failed to rebuild index", "request_id", req.requestID, "err", err.Error())
			}
			cancel()
			s.building.Store(false)
		case <-ctx.Done():
			s.logger.Info("index service stopped", "reason", ctx.Err())
			return
		}
	}
}

func (s *Service) buildIndex(ctx context.Context, requestID string) error {
	start := time.Now()
	s.logger.Info("building index...", "request_id", requestID)
	s.setRequestStatus(requestID, ProgressStatusStep1)

	tee := &teeSource{source: s.source}
	if err := s.engine.Rebuild(ctx, tee); err != nil {
		return s.fail(requestID, start, err)
	}

	s.setRequestStatus(requestID, ProgressStatusStep2)

	documents := tee.documents()
	if err := s.indexer.Replace(documents); err != nil {
		return s.fail(requestID, start, fmt.Errorf("failed to update deep index: %w", err))
	}

	stats := s.engine.Stats()
	metadata := kvdb.IndexMetadata{
		LastIndexed: time.Now().UTC(),
		Items:       stats.TotalItems,
		Posts:       stats.Posts,
		Projects:    stats.Projects,
	}
	if stats.LastIndexed != nil {
		metadata.LastIndexed = *stats.LastIndexed
	}
	s.setIndexMetadata(metadata)

	metrics.SetIndexedItems(stats.Posts, stats.Projects)
	metrics.RecordRebuild(metrics.StatusSuccess, time.Since(start).Seconds())

	s.setRequestStatus(requestID, ProgressStatusComplete)
	s.logger.Info("finished building index", "request_id", requestID, "items", stats.TotalItems, "documents", len(documents), "duration", time.Since(start).String())

	return nil
}

func (s *Service) fail(requestID string, start time.Time, err error) error {
	s.setRequestStatus(requestID, ProgressStatusFailed)
	metrics.RecordRebuild(metrics.StatusFailure, time.Since(start).Seconds())
	return err
}

func (s *Service) setIndexMetadata(metadata kvdb.IndexMetadata) {
	data, err := json.Marshal(metadata)
	if err != nil {
		s.logger.Error("failed to marshal index metadata", "err", err.Error())
		return
	}

	if err := s.metadataStore.Set(kvdb.MetadataBucket, kvdb.IndexMetadataKey, string(data)); err != nil {
		s.logger.Error("failed to set index metadata", "err", err.Error())
	}
}

func (s *Service) setRequestStatus(requestID string, status int) {
	if err := s.metadataStore.Set(kvdb.RequestsBucket, requestID, strconv.Itoa(status)); err != nil {
		s.logger.Error("failed to update request status", "request_id", requestID, "progress", status, "err", err.Error())
	}
}
