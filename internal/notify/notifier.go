package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Notifier delivers SMS/email messages. Fire-and-forget from the core's
// perspective: a failed notification is logged by the caller and never
// rolls back the transition that triggered it.
type Notifier interface {
	Notify(ctx context.Context, recipient, message string) error
}

// LogNotifier writes notifications to the structured log. Stands in for a
// real SMS/email gateway in development and tests.
type LogNotifier struct {
	Log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{Log: log}
}

func (n *LogNotifier) Notify(_ context.Context, recipient, message string) error {
	n.Log.WithFields(logrus.Fields{
		"recipient": recipient,
		"message":   message,
	}).Info("notification")
	return nil
}
