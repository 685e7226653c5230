package main

import (
	"context"
	"fmt"
	"time"

	"github.com/stemsi/admissions-backend/internal/cache"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/database"
	"github.com/stemsi/admissions-backend/internal/events"
	"github.com/stemsi/admissions-backend/internal/logger"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/repository"
	"github.com/stemsi/admissions-backend/internal/service"
)

const demoStudents = 20

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Seeding never needs the broker; events stay in-process and are dropped.
	bus, err := events.NewBus(events.Config{}, logger.NewWatermillAdapter(log))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create event bus")
	}
	defer bus.Close()

	questionRepo := repository.NewQuestionRepository(pool)
	passageRepo := repository.NewPassageRepository(pool)
	bucketRepo := repository.NewBucketRepository(pool)
	passageCache := cache.NewPassageCache(rdb, cfg.PassageCacheTTL, log)

	bank := service.NewQuestionBankService(questionRepo, passageRepo, bucketRepo, passageCache, log)
	versions := service.NewVersionService(repository.NewVersionRepository(pool), questionRepo, bucketRepo, bus, log)
	students := service.NewStudentService(repository.NewStudentRepository(pool), repository.NewEnrolmentKeyRepository(pool), bus, log)

	// ─── Question Bank ─────────────────────────────────────────────────
	fmt.Println("=== Seeding question bank ===")

	passage, err := bank.CreatePassage(ctx, model.PassageRequest{
		Body: "A farmer has 17 sheep. All but 9 run away. The remaining sheep are moved to a new field.",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create passage")
	}

	passageQuestions := []model.AddQuestionRequest{
		mcq(&passage.ID, "How many sheep remain?", model.TopicBasicMath, model.DifficultyEasy, "9", "8", "17"),
		mcq(&passage.ID, "How many sheep ran away?", model.TopicBasicMath, model.DifficultyMedium, "8", "9", "0"),
		{
			PassageID:  &passage.ID,
			Text:       "Describe in one sentence what happened to the sheep.",
			Topic:      string(model.TopicEnglish),
			Difficulty: string(model.DifficultyEasy),
			Type:       string(model.QuestionTypeFreeText),
		},
	}
	for _, req := range passageQuestions {
		q, err := bank.AddQuestion(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add passage question")
		}
		fmt.Printf("  question %d (%s)\n", q.ID, q.Type)
	}

	var freeIDs []int64
	free := []model.AddQuestionRequest{
		mcq(nil, "What is 12 x 12?", model.TopicBasicMath, model.DifficultyEasy, "144", "124", "142"),
		mcq(nil, "Which shape comes next: circle, square, circle, ...?", model.TopicAbstractReasoning, model.DifficultyMedium, "square", "circle", "triangle"),
		mcq(nil, "Pick the odd one out.", model.TopicNonVerbalReasoning, model.DifficultyHard, "cube", "square", "rectangle"),
	}
	for _, req := range free {
		q, err := bank.AddQuestion(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add question")
		}
		freeIDs = append(freeIDs, q.ID)
	}

	bucket, err := bank.CreateBucket(ctx, model.CreateBucketRequest{Name: "English comprehension"})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bucket")
	}
	var choiceIDs []int64
	for i := range 2 {
		a, err := bank.AddQuestion(ctx, mcq(nil, fmt.Sprintf("Choose the synonym of 'rapid' (%d)", i+1), model.TopicEnglish, model.DifficultyEasy, "quick", "slow", "late"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add bucket question")
		}
		choice, err := bank.AddChoice(ctx, bucket.ID, model.AddChoiceRequest{QuestionIDs: []int64{a.ID}})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to add bucket choice")
		}
		choiceIDs = append(choiceIDs, choice.ID)
	}

	version, err := versions.CreateAndMarkAsCurrent(ctx, model.PublishVersionRequest{
		Name:        "demo-" + time.Now().UTC().Format("20060102-1504"),
		QuestionIDs: freeIDs,
		Buckets:     []model.BucketSelection{{BucketID: bucket.ID, ChoiceIDs: choiceIDs}},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to publish version")
	}
	fmt.Printf("Published version %d (%s)\n", version.ID, version.Name)

	// ─── Students ──────────────────────────────────────────────────────
	fmt.Printf("=== Seeding %d students ===\n", demoStudents)

	for i := 1; i <= demoStudents; i++ {
		st, err := students.Create(ctx, model.CreateStudentRequest{
			Name:   fmt.Sprintf("Demo Student %02d", i),
			Mobile: fmt.Sprintf("98765%05d", i),
		})
		if err != nil {
			log.Error().Err(err).Int("index", i).Msg("Failed to create student")
			continue
		}
		key, err := students.GenerateKey(ctx, st.ID)
		if err != nil {
			log.Error().Err(err).Int64("student_id", st.ID).Msg("Failed to issue key")
			continue
		}
		fmt.Printf("  %s -> %s\n", st.Name, key.Key)
	}

	fmt.Println("Done.")
}

// mcq builds a multiple-choice request whose first option is correct.
func mcq(passageID *int64, text string, topic model.Topic, diff model.Difficulty, options ...string) model.AddQuestionRequest {
	opts := make([]model.AddOptionRequest, len(options))
	for i, o := range options {
		opts[i] = model.AddOptionRequest{Text: o, Correct: i == 0}
	}
	return model.AddQuestionRequest{
		PassageID:  passageID,
		Text:       text,
		Topic:      string(topic),
		Difficulty: string(diff),
		Type:       string(model.QuestionTypeMultipleChoice),
		Options:    opts,
	}
}
