package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/admissions-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExotelSender_Send(t *testing.T) {
	var (
		gotPath, gotUser, gotPass string
		gotForm                   map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		assert.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"From": r.PostForm.Get("From"),
			"To":   r.PostForm.Get("To"),
			"Body": r.PostForm.Get("Body"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewExotelSender(ExotelConfig{BaseURL: srv.URL + "/", SID: "acme", Token: "tok", SenderID: "ADMSNS"}, srv.Client(), zerolog.Nop())

	outcome := s.Send(context.Background(), "9876543210", string(model.StageEnrolmentKeyGenerated), SMSData{Name: "Asha", Key: "ABC123"})
	assert.Equal(t, SMSDelivered, outcome)

	assert.Equal(t, "/acme/Sms/send", gotPath)
	assert.Equal(t, "acme", gotUser)
	assert.Equal(t, "tok", gotPass)
	assert.Equal(t, "ADMSNS", gotForm["From"])
	assert.Equal(t, "9876543210", gotForm["To"])
	assert.Contains(t, gotForm["Body"], "Asha")
	assert.Contains(t, gotForm["Body"], "ABC123")
}

func TestExotelSender_FailuresAreTreatedAsSent(t *testing.T) {
	t.Run("gateway rejects", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		s := NewExotelSender(ExotelConfig{BaseURL: srv.URL, SID: "acme"}, srv.Client(), zerolog.Nop())
		outcome := s.Send(context.Background(), "bad-number", string(model.StageCompletedTest), SMSData{Name: "Asha"})
		assert.Equal(t, SMSDeliveryUnknown, outcome)
	})

	t.Run("gateway unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		s := NewExotelSender(ExotelConfig{BaseURL: url, SID: "acme"}, nil, zerolog.Nop())
		outcome := s.Send(context.Background(), "9876543210", string(model.StageCompletedTest), SMSData{Name: "Asha"})
		assert.Equal(t, SMSDeliveryUnknown, outcome)
	})
}

func TestExotelSender_UnknownTemplate(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	s := NewExotelSender(ExotelConfig{BaseURL: srv.URL, SID: "acme"}, srv.Client(), zerolog.Nop())
	outcome := s.Send(context.Background(), "9876543210", "requestCallback", SMSData{})
	assert.Equal(t, SMSNoTemplate, outcome)
	assert.False(t, called)
}

func TestHasTemplateForStage(t *testing.T) {
	assert.True(t, HasTemplateForStage(model.StageEnrolmentKeyGenerated))
	assert.True(t, HasTemplateForStage(model.StageCompletedTest))
	assert.False(t, HasTemplateForStage(model.StageRequestCallback))
	assert.False(t, HasTemplateForStage(model.StageNone))
}
