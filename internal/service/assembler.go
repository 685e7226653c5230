package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/events"
	"github.com/stemsi/admissions-backend/internal/metrics"
	"github.com/stemsi/admissions-backend/internal/model"
)

// Picker returns an index in [0, n).
type Picker func(n int) int

// Assembler resolves version snapshots into question content and binds
// passages to enrolment keys.
type Assembler struct {
	questions QuestionStore
	passages  PassageStore
	buckets   BucketStore
	keys      EnrolmentKeyStore
	cache     PassageCache
	publisher events.Publisher
	pick      Picker
	now       func() time.Time
	log       zerolog.Logger
}

// NewAssembler creates a new Assembler that picks passages uniformly at random.
func NewAssembler(
	questions QuestionStore,
	passages PassageStore,
	buckets BucketStore,
	keys EnrolmentKeyStore,
	cache PassageCache,
	publisher events.Publisher,
	log zerolog.Logger,
) *Assembler {
	return &Assembler{
		questions: questions,
		passages:  passages,
		buckets:   buckets,
		keys:      keys,
		cache:     cache,
		publisher: publisher,
		pick:      rand.IntN,
		now:       time.Now,
		log:       log.With().Str("component", "assembler").Logger(),
	}
}

// WithPicker replaces the passage picker. Used by tests.
func (a *Assembler) WithPicker(p Picker) *Assembler {
	a.pick = p
	return a
}

// Resolve loads the content referenced by a version snapshot. Free-standing
// questions are grouped by topic and difficulty with every known topic
// present. Bucket questions keep the snapshot's bucket and choice order and
// each choice's own question order. Any reference to deleted content fails
// with ErrDataIntegrity.
func (a *Assembler) Resolve(ctx context.Context, v *model.Version) (*model.ResolvedVersion, error) {
	snap := v.Snapshot

	bucketIDs := make([]int64, len(snap.Buckets))
	var choiceIDs []int64
	for i, sel := range snap.Buckets {
		bucketIDs[i] = sel.BucketID
		choiceIDs = append(choiceIDs, sel.ChoiceIDs...)
	}

	var (
		buckets map[int64]model.Bucket
		choices map[int64]model.BucketChoice
		err     error
	)
	if len(bucketIDs) > 0 {
		if buckets, err = a.buckets.GetByIDs(ctx, bucketIDs); err != nil {
			return nil, storeErr("load buckets", err)
		}
		if choices, err = a.buckets.ChoicesByIDs(ctx, distinctIDs(choiceIDs)); err != nil {
			return nil, storeErr("load choices", err)
		}
	}

	questionIDs := append([]int64{}, snap.QuestionIDs...)
	for _, sel := range snap.Buckets {
		if _, ok := buckets[sel.BucketID]; !ok {
			return nil, integrityf("version %d references missing bucket %d", v.ID, sel.BucketID)
		}
		for _, cid := range sel.ChoiceIDs {
			c, ok := choices[cid]
			if !ok || c.BucketID != sel.BucketID {
				return nil, integrityf("version %d references missing choice %d in bucket %d", v.ID, cid, sel.BucketID)
			}
			questionIDs = append(questionIDs, c.QuestionIDs...)
		}
	}

	content := map[int64]model.Question{}
	if len(questionIDs) > 0 {
		if content, err = a.questions.GetByIDs(ctx, distinctIDs(questionIDs)); err != nil {
			return nil, storeErr("load questions", err)
		}
	}
	lookup := func(id int64) (model.Question, error) {
		q, ok := content[id]
		if !ok {
			return model.Question{}, integrityf("version %d references missing question %d", v.ID, id)
		}
		return q, nil
	}

	resolved := &model.ResolvedVersion{
		VersionID:      v.ID,
		WithoutChoices: make(map[model.Topic]model.DifficultyGroups, len(model.Topics)),
		Buckets:        make([]model.ResolvedBucket, 0, len(snap.Buckets)),
	}
	for _, t := range model.Topics {
		resolved.WithoutChoices[t] = emptyGroups()
	}

	for _, id := range distinctIDs(snap.QuestionIDs) {
		q, err := lookup(id)
		if err != nil {
			return nil, err
		}
		groups, ok := resolved.WithoutChoices[q.Topic]
		if !ok {
			groups = emptyGroups()
		}
		switch q.Difficulty {
		case model.DifficultyEasy:
			groups.Easy = append(groups.Easy, q)
		case model.DifficultyMedium:
			groups.Medium = append(groups.Medium, q)
		case model.DifficultyHard:
			groups.Hard = append(groups.Hard, q)
		default:
			return nil, integrityf("question %d has unknown difficulty %q", q.ID, q.Difficulty)
		}
		resolved.WithoutChoices[q.Topic] = groups
	}

	for _, sel := range snap.Buckets {
		rb := model.ResolvedBucket{
			ID:      sel.BucketID,
			Name:    buckets[sel.BucketID].Name,
			Choices: make([]model.ResolvedChoice, 0, len(sel.ChoiceIDs)),
		}
		for _, cid := range sel.ChoiceIDs {
			c := choices[cid]
			rc := model.ResolvedChoice{ID: cid, Questions: make([]model.Question, 0, len(c.QuestionIDs))}
			for _, qid := range c.QuestionIDs {
				q, err := lookup(qid)
				if err != nil {
					return nil, err
				}
				rc.Questions = append(rc.Questions, q)
			}
			rb.Choices = append(rb.Choices, rc)
		}
		resolved.Buckets = append(resolved.Buckets, rb)
	}

	return resolved, nil
}

func emptyGroups() model.DifficultyGroups {
	return model.DifficultyGroups{
		Easy:   []model.Question{},
		Medium: []model.Question{},
		Hard:   []model.Question{},
	}
}

// AssembleForKey returns the set bound to a key, binding a randomly picked
// passage on first use. Concurrent first calls bind exactly one passage: the
// bind is a conditional update and the loser re-reads the winner's choice.
func (a *Assembler) AssembleForKey(ctx context.Context, keyStr string) (*model.AssembledSet, error) {
	key, err := a.keys.GetByKey(ctx, keyStr)
	if err != nil {
		return nil, storeErr("get enrolment key", err)
	}
	if key.PassageID != nil {
		return a.LoadPassageSet(ctx, *key.PassageID)
	}

	candidates, err := a.passages.ListCandidateIDs(ctx)
	if err != nil {
		return nil, storeErr("list candidate passages", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	passageID := candidates[a.pick(len(candidates))]

	startedAt := a.now().UTC()
	bound, err := a.keys.BindPassage(ctx, key.ID, passageID, startedAt)
	if err != nil {
		return nil, storeErr("bind passage", err)
	}
	if !bound {
		key, err = a.keys.GetByKey(ctx, keyStr)
		if err != nil {
			return nil, storeErr("re-read enrolment key", err)
		}
		if key.PassageID == nil {
			return nil, integrityf("enrolment key %s lost bind but has no passage", keyStr)
		}
		a.log.Debug().Str("key", keyStr).Int64("passage_id", *key.PassageID).Msg("concurrent bind; reusing bound passage")
		return a.LoadPassageSet(ctx, *key.PassageID)
	}

	metrics.KeysStarted.Inc()
	a.log.Info().Str("key", keyStr).Int64("passage_id", passageID).Msg("enrolment key started")

	evt := events.KeyStarted{Key: keyStr, PassageID: passageID, StartedAt: startedAt}
	if err := a.publisher.Publish(ctx, config.EventTopic.KeyStarted, evt); err != nil {
		a.log.Warn().Err(err).Str("key", keyStr).Msg("publish key started event failed")
	}

	return a.LoadPassageSet(ctx, passageID)
}

// LoadPassageSet returns a passage with its questions, served from the cache when possible.
func (a *Assembler) LoadPassageSet(ctx context.Context, passageID int64) (*model.AssembledSet, error) {
	if set, ok := a.cache.Get(ctx, passageID); ok {
		return set, nil
	}

	passage, err := a.passages.GetByID(ctx, passageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, integrityf("bound passage %d no longer exists", passageID)
		}
		return nil, storeErr("get passage", err)
	}
	questions, err := a.questions.ListByPassage(ctx, passageID)
	if err != nil {
		return nil, storeErr("list passage questions", err)
	}
	if questions == nil {
		questions = []model.Question{}
	}

	set := &model.AssembledSet{Passage: *passage, Questions: questions}
	a.cache.Set(ctx, passageID, set)
	return set, nil
}
