package worker

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stemsi/admissions-backend/internal/config"
)

// EventRouter runs the event bus consumers.
type EventRouter struct {
	router *message.Router
}

// NewEventRouter wires the SMS dispatcher and the monitor relay to their topics.
func NewEventRouter(
	sub message.Subscriber,
	logger watermill.LoggerAdapter,
	sms *SMSDispatcher,
	relay *MonitorRelay,
) (*EventRouter, error) {
	r, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("create event router: %w", err)
	}
	r.AddMiddleware(middleware.Recoverer)

	r.AddNoPublisherHandler("sms_dispatcher", config.EventTopic.StageTransitioned, sub, sms.Handle)
	r.AddNoPublisherHandler("monitor_relay_started", config.EventTopic.KeyStarted, sub, relay.Handle)
	r.AddNoPublisherHandler("monitor_relay_answered", config.EventTopic.AnswersRecorded, sub, relay.Handle)

	return &EventRouter{router: r}, nil
}

// Start runs the router until ctx is cancelled.
func (r *EventRouter) Start(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running is closed once every handler is subscribed.
func (r *EventRouter) Running() chan struct{} {
	return r.router.Running()
}
