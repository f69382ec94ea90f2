package sim

import "github.com/sirupsen/logrus"

// EventLogger is a hook that logs every dispatched event.
type EventLogger struct {
	Logger logrus.FieldLogger
}

// NewEventLogger returns a new EventLogger that writes to the given logger.
func NewEventLogger(logger logrus.FieldLogger) *EventLogger {
	return &EventLogger{Logger: logger}
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	h.Logger.WithFields(logrus.Fields{
		"time":   float64(evt.Time),
		"module": evt.Module,
		"event":  evt.Type,
		"seq":    evt.Seq(),
	}).Info("dispatching event")
}
