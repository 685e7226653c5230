package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/events"
	"github.com/stemsi/admissions-backend/internal/metrics"
	"github.com/stemsi/admissions-backend/internal/model"
)

// VersionService is the test version registry.
type VersionService struct {
	versions  VersionStore
	questions QuestionStore
	buckets   BucketStore
	publisher events.Publisher
	log       zerolog.Logger
}

// NewVersionService creates a new VersionService.
func NewVersionService(
	versions VersionStore,
	questions QuestionStore,
	buckets BucketStore,
	publisher events.Publisher,
	log zerolog.Logger,
) *VersionService {
	return &VersionService{
		versions:  versions,
		questions: questions,
		buckets:   buckets,
		publisher: publisher,
		log:       log.With().Str("component", "version_service").Logger(),
	}
}

// FindByID returns a version or ErrNotFound.
func (s *VersionService) FindByID(ctx context.Context, id int64) (*model.Version, error) {
	v, err := s.versions.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get version", err)
	}
	return v, nil
}

// FindCurrent returns the current version, or nil if none was ever published.
func (s *VersionService) FindCurrent(ctx context.Context) (*model.Version, error) {
	v, err := s.versions.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get current version", err)
	}
	return v, nil
}

// List returns the version history, newest first.
func (s *VersionService) List(ctx context.Context) ([]model.Version, error) {
	versions, err := s.versions.List(ctx)
	if err != nil {
		return nil, storeErr("list versions", err)
	}
	if versions == nil {
		versions = []model.Version{}
	}
	return versions, nil
}

// CreateAndMarkAsCurrent validates every referenced id, freezes the snapshot
// and stores it as the new current version.
func (s *VersionService) CreateAndMarkAsCurrent(ctx context.Context, req model.PublishVersionRequest) (*model.Version, error) {
	if len(req.QuestionIDs) == 0 && len(req.Buckets) == 0 {
		return nil, ErrEmptyVersion
	}

	if err := s.validateQuestionIDs(ctx, req.QuestionIDs); err != nil {
		return nil, err
	}
	if err := s.validateBuckets(ctx, req.Buckets); err != nil {
		return nil, err
	}

	v := &model.Version{
		Name:     req.Name,
		Snapshot: freezeSnapshot(req.QuestionIDs, req.Buckets),
		Current:  true,
	}
	if err := s.versions.CreateAndMarkCurrent(ctx, v); err != nil {
		return nil, storeErr("create version", err)
	}

	metrics.VersionsPublished.Inc()
	s.log.Info().Int64("version_id", v.ID).Str("name", v.Name).Msg("version published")

	evt := events.VersionPublished{VersionID: v.ID, Name: v.Name, CreatedAt: v.CreatedAt}
	if err := s.publisher.Publish(ctx, config.EventTopic.VersionPublished, evt); err != nil {
		s.log.Warn().Err(err).Int64("version_id", v.ID).Msg("publish version event failed")
	}

	return v, nil
}

func (s *VersionService) validateQuestionIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	distinct := distinctIDs(ids)
	existing, err := s.questions.ExistingIDs(ctx, distinct)
	if err != nil {
		return storeErr("check question ids", err)
	}
	if len(existing) != len(distinct) {
		return ErrQuestionIDsInvalid
	}
	return nil
}

func (s *VersionService) validateBuckets(ctx context.Context, selections []model.BucketSelection) error {
	if len(selections) == 0 {
		return nil
	}

	bucketIDs := make([]int64, 0, len(selections))
	var choiceIDs []int64
	for _, sel := range selections {
		if slices.Contains(bucketIDs, sel.BucketID) {
			return fmt.Errorf("%w: bucket %d selected twice", ErrBucketIDsInvalid, sel.BucketID)
		}
		if len(sel.ChoiceIDs) == 0 {
			return fmt.Errorf("%w: bucket %d has no choices", ErrChoiceIDsInvalid, sel.BucketID)
		}
		bucketIDs = append(bucketIDs, sel.BucketID)
		choiceIDs = append(choiceIDs, sel.ChoiceIDs...)
	}

	buckets, err := s.buckets.GetByIDs(ctx, bucketIDs)
	if err != nil {
		return storeErr("check bucket ids", err)
	}
	if len(buckets) != len(bucketIDs) {
		return ErrBucketIDsInvalid
	}

	choices, err := s.buckets.ChoicesByIDs(ctx, distinctIDs(choiceIDs))
	if err != nil {
		return storeErr("check choice ids", err)
	}
	for _, sel := range selections {
		for _, cid := range sel.ChoiceIDs {
			c, ok := choices[cid]
			if !ok || c.BucketID != sel.BucketID {
				return ErrChoiceIDsInvalid
			}
		}
	}
	return nil
}

// freezeSnapshot copies the request slices so later mutation of the request
// cannot reach the stored snapshot.
func freezeSnapshot(questionIDs []int64, selections []model.BucketSelection) model.VersionSnapshot {
	snap := model.VersionSnapshot{
		QuestionIDs: slices.Clone(questionIDs),
		Buckets:     make([]model.BucketSelection, len(selections)),
	}
	if snap.QuestionIDs == nil {
		snap.QuestionIDs = []int64{}
	}
	for i, sel := range selections {
		snap.Buckets[i] = model.BucketSelection{
			BucketID:  sel.BucketID,
			ChoiceIDs: slices.Clone(sel.ChoiceIDs),
		}
	}
	return snap
}

func distinctIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
