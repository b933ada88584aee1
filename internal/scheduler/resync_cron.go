package cron

import (
	"context"

	"github.com/podpulse/podpulse/internal/realtime"
	"github.com/podpulse/podpulse/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartResyncJob periodically recomputes the feed of every actively
// watched pod. The event bus keeps no replay log, so this sweep is the
// backstop for anything a consumer missed between reconnect resyncs.
func StartResyncJob(dispatcher *realtime.Dispatcher, schedule string) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		dispatcher.ResyncActive(context.Background())
	})
	if err != nil {
		logrus.WithError(err).WithField("schedule", schedule).Error("Failed to register resync job")
		return c
	}

	c.Start()
	logger.Log.WithField("schedule", schedule).Info("Feed resync job started")
	return c
}
