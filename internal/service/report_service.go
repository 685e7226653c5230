package service

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/xuri/excelize/v2"
)

// VersionResolver resolves a version snapshot into question content.
type VersionResolver interface {
	Resolve(ctx context.Context, v *model.Version) (*model.ResolvedVersion, error)
}

// ReportService aggregates answer distributions per version.
type ReportService struct {
	versions VersionStore
	resolver VersionResolver
	attempts AttemptStore
	log      zerolog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(versions VersionStore, resolver VersionResolver, attempts AttemptStore, log zerolog.Logger) *ReportService {
	return &ReportService{
		versions: versions,
		resolver: resolver,
		attempts: attempts,
		log:      log.With().Str("component", "report_service").Logger(),
	}
}

// QuestionReport returns every question of a version with its answer
// distribution. Multiple-choice distributions are keyed by option id and
// free-text ones by the literal answer. Unanswered questions carry an empty
// map.
func (s *ReportService) QuestionReport(ctx context.Context, versionID int64) ([]model.QuestionReport, error) {
	v, err := s.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, storeErr("get version", err)
	}
	resolved, err := s.resolver.Resolve(ctx, v)
	if err != nil {
		return nil, err
	}

	questions := flattenResolved(resolved)

	var mcqIDs, textIDs []int64
	reports := make([]model.QuestionReport, len(questions))
	index := make(map[int64]int, len(questions))
	for i := range questions {
		if err := copier.Copy(&reports[i], &questions[i]); err != nil {
			return nil, fmt.Errorf("copy question %d: %w", questions[i].ID, err)
		}
		reports[i].Report = map[string]int64{}
		index[questions[i].ID] = i

		switch questions[i].Type {
		case model.QuestionTypeMultipleChoice:
			mcqIDs = append(mcqIDs, questions[i].ID)
		case model.QuestionTypeFreeText:
			textIDs = append(textIDs, questions[i].ID)
		}
	}

	byOption, err := s.attempts.CountByOption(ctx, mcqIDs)
	if err != nil {
		return nil, storeErr("count option answers", err)
	}
	byText, err := s.attempts.CountByText(ctx, textIDs)
	if err != nil {
		return nil, storeErr("count text answers", err)
	}

	for _, c := range slices.Concat(byOption, byText) {
		if i, ok := index[c.QuestionID]; ok {
			reports[i].Report[c.Answer] += c.Count
		}
	}

	s.log.Debug().Int64("version_id", versionID).Int("questions", len(reports)).Msg("question report built")
	return reports, nil
}

// flattenResolved lists each question once: free-standing questions by topic
// then difficulty, followed by bucket questions in snapshot order.
func flattenResolved(r *model.ResolvedVersion) []model.Question {
	seen := map[int64]struct{}{}
	var out []model.Question
	add := func(qs []model.Question) {
		for _, q := range qs {
			if _, ok := seen[q.ID]; ok {
				continue
			}
			seen[q.ID] = struct{}{}
			out = append(out, q)
		}
	}

	topics := slices.Clone(model.Topics)
	for t := range r.WithoutChoices {
		if !slices.Contains(topics, t) {
			topics = append(topics, t)
		}
	}
	for _, t := range topics {
		g := r.WithoutChoices[t]
		add(g.Easy)
		add(g.Medium)
		add(g.Hard)
	}
	for _, b := range r.Buckets {
		for _, c := range b.Choices {
			add(c.Questions)
		}
	}
	return out
}

var reportHeader = []any{"Question ID", "Question", "Type", "Answer", "Count"}

// ExportXLSX renders the question report of a version as a spreadsheet with
// one row per distinct answer. Questions without answers get a single row
// with an empty answer.
func (s *ReportService) ExportXLSX(ctx context.Context, versionID int64) ([]byte, error) {
	reports, err := s.QuestionReport(ctx, versionID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &reportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := 2
	writeRow := func(values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(sheet, cell, &values)
	}

	for _, r := range reports {
		if len(r.Report) == 0 {
			if err := writeRow([]any{r.ID, r.Text, string(r.Type), "", 0}); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
			continue
		}
		for _, answer := range slices.Sorted(maps.Keys(r.Report)) {
			label := answer
			if r.Type == model.QuestionTypeMultipleChoice {
				label = optionLabel(r.Options, answer)
			}
			if err := writeRow([]any{r.ID, r.Text, string(r.Type), label, r.Report[answer]}); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func optionLabel(options []model.Option, key string) string {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return key
	}
	for _, o := range options {
		if o.ID == id {
			return o.Text
		}
	}
	return key
}
