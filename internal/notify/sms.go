package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/metrics"
	"github.com/stemsi/admissions-backend/internal/model"
)

// SMSOutcome is the result of an SMS send attempt.
type SMSOutcome string

const (
	SMSDelivered SMSOutcome = "delivered"
	// SMSDeliveryUnknown means the gateway call failed. The message is treated
	// as sent and never retried: the gateway bills per attempt, and malformed
	// numbers would otherwise be retried on every sync.
	SMSDeliveryUnknown SMSOutcome = "delivery_unknown"
	// SMSNoTemplate means no template exists for the requested name.
	SMSNoTemplate SMSOutcome = "no_template"
)

// smsTemplates holds one template per stage a student can enter.
var smsTemplates = map[string]*template.Template{
	string(model.StageEnrolmentKeyGenerated): template.Must(template.New("enrolmentKeyGenerated").Parse(
		"Hi {{.Name}}, your test key is {{.Key}}. Use it to start your admissions test.")),
	string(model.StageCompletedTest): template.Must(template.New("completedTest").Parse(
		"Hi {{.Name}}, we have received your test answers. We will contact you with the next steps.")),
}

// HasTemplateForStage reports whether a stage has an SMS template.
func HasTemplateForStage(stage model.Stage) bool {
	_, ok := smsTemplates[string(stage)]
	return ok
}

// SMSData is the context a template is rendered with.
type SMSData struct {
	Name string
	Key  string
}

// SMSSender sends templated SMS messages.
type SMSSender interface {
	Send(ctx context.Context, mobile, templateName string, data SMSData) SMSOutcome
}

// ExotelConfig holds gateway credentials.
type ExotelConfig struct {
	BaseURL  string
	SID      string
	Token    string
	SenderID string
}

// ExotelSender posts SMS messages to the Exotel gateway.
type ExotelSender struct {
	cfg    ExotelConfig
	client *http.Client
	log    zerolog.Logger
}

// NewExotelSender creates a new ExotelSender.
func NewExotelSender(cfg ExotelConfig, client *http.Client, log zerolog.Logger) *ExotelSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ExotelSender{
		cfg:    cfg,
		client: client,
		log:    log.With().Str("component", "exotel_sms").Logger(),
	}
}

// Send renders the template and posts it. It never returns an error: any
// failure is logged and reported as SMSDeliveryUnknown.
func (s *ExotelSender) Send(ctx context.Context, mobile, templateName string, data SMSData) SMSOutcome {
	outcome := s.send(ctx, mobile, templateName, data)
	metrics.SMSOutcomes.WithLabelValues(templateName, string(outcome)).Inc()
	return outcome
}

func (s *ExotelSender) send(ctx context.Context, mobile, templateName string, data SMSData) SMSOutcome {
	tmpl, ok := smsTemplates[templateName]
	if !ok {
		s.log.Warn().Str("template", templateName).Msg("no SMS template")
		return SMSNoTemplate
	}

	var body strings.Builder
	if err := tmpl.Execute(&body, data); err != nil {
		s.log.Error().Err(err).Str("template", templateName).Msg("render SMS template")
		return SMSDeliveryUnknown
	}

	form := url.Values{
		"From": {s.cfg.SenderID},
		"To":   {mobile},
		"Body": {body.String()},
	}
	endpoint := fmt.Sprintf("%s/%s/Sms/send", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.SID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		s.log.Error().Err(err).Msg("build SMS request")
		return SMSDeliveryUnknown
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.SID, s.cfg.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Str("to", mobile).Str("template", templateName).
			Msg("SMS gateway unreachable; treated as sent")
		return SMSDeliveryUnknown
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		s.log.Warn().Int("status", resp.StatusCode).Str("to", mobile).Str("template", templateName).
			Msg("SMS gateway rejected message; treated as sent")
		return SMSDeliveryUnknown
	}

	s.log.Info().Str("to", mobile).Str("template", templateName).Msg("SMS sent")
	return SMSDelivered
}
