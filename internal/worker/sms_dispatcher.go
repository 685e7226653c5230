package worker

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/events"
	"github.com/stemsi/admissions-backend/internal/metrics"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stemsi/admissions-backend/internal/notify"
)

// StudentLookup loads a student by id.
type StudentLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Student, error)
}

// SMSDispatcher texts students when they enter a stage that has a template.
// It always acks: a lost SMS is cheaper than a redelivery storm against a
// billed gateway.
type SMSDispatcher struct {
	students StudentLookup
	sender   notify.SMSSender
	log      zerolog.Logger
}

// NewSMSDispatcher creates a new SMSDispatcher.
func NewSMSDispatcher(students StudentLookup, sender notify.SMSSender, log zerolog.Logger) *SMSDispatcher {
	return &SMSDispatcher{
		students: students,
		sender:   sender,
		log:      log.With().Str("component", "sms_dispatcher").Logger(),
	}
}

// Handle processes one stage.transitioned message.
func (d *SMSDispatcher) Handle(msg *message.Message) error {
	var evt events.StageTransitioned
	if _, err := events.Decode(msg.Payload, &evt); err != nil {
		d.log.Error().Err(err).Str("message_uuid", msg.UUID).Msg("undecodable stage event dropped")
		return nil
	}

	if !notify.HasTemplateForStage(evt.ToStage) {
		return nil
	}

	ctx := msg.Context()
	student, err := d.students.GetByID(ctx, evt.StudentID)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("sms").Inc()
		d.log.Error().Err(err).Int64("student_id", evt.StudentID).Msg("student lookup for SMS failed")
		return nil
	}

	outcome := d.sender.Send(ctx, student.Mobile, string(evt.ToStage), notify.SMSData{Name: student.Name, Key: evt.Key})
	d.log.Debug().
		Int64("student_id", evt.StudentID).
		Str("stage", string(evt.ToStage)).
		Str("outcome", string(outcome)).
		Msg("stage SMS dispatched")
	return nil
}
