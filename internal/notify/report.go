package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var syncReportTmpl = template.Must(template.ParseFS(templateFS, "templates/sync_report.html"))

// KeyError lists the problems found for one enrolment key.
type KeyError struct {
	Key    string   `json:"key"`
	Errors []string `json:"errors"`
}

// PlatformErrors groups sync problems by platform entity.
type PlatformErrors struct {
	EnrolmentKeys []KeyError `json:"enrolmentKeys"`
}

// SyncErrors groups sync problems by source.
type SyncErrors struct {
	Platform PlatformErrors `json:"platform"`
}

// SyncReport is the payload of the periodic report email.
type SyncReport struct {
	WindowStart    time.Time  `json:"windowStart"`
	WindowEnd      time.Time  `json:"windowEnd"`
	KeysAdded      int64      `json:"keysAdded"`
	TestsCompleted int64      `json:"testsCompleted"`
	AverageMarks   float64    `json:"averageMarks"`
	SyncErrors     SyncErrors `json:"syncErrors"`
}

// Reporter renders and emails the sync report.
type Reporter struct {
	mailer  Mailer
	to      []string
	cc      []string
	subject string
}

// NewReporter creates a new Reporter.
func NewReporter(mailer Mailer, to, cc []string, subject string) *Reporter {
	return &Reporter{mailer: mailer, to: to, cc: cc, subject: subject}
}

// RenderSyncReport renders the HTML body of a sync report.
func RenderSyncReport(report SyncReport) (string, error) {
	var buf bytes.Buffer
	if err := syncReportTmpl.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("render sync report: %w", err)
	}
	return buf.String(), nil
}

// SendSyncReport renders report and mails it to the configured recipients.
func (r *Reporter) SendSyncReport(ctx context.Context, report SyncReport) error {
	body, err := RenderSyncReport(report)
	if err != nil {
		return err
	}
	return r.mailer.Send(ctx, Email{
		To:      r.to,
		Cc:      r.cc,
		Subject: r.subject,
		Body:    body,
		IsHTML:  true,
	})
}
