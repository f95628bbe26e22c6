package jobs

import (
	"context"
	"time"

	"isintu/internal/middleware"
)

// NotificationRetentionJobName identifies the read-notification purge.
const NotificationRetentionJobName = "notification-retention"

// ReadNotificationPurger deletes read notifications older than a retention window.
type ReadNotificationPurger interface {
	PurgeRead(ctx context.Context, retention time.Duration) (int64, error)
}

// NotificationRetentionJob removes read notifications past the retention window.
type NotificationRetentionJob struct {
	purger    ReadNotificationPurger
	schedule  string
	retention time.Duration
}

func NewNotificationRetentionJob(purger ReadNotificationPurger, schedule string, retentionDays int) *NotificationRetentionJob {
	return &NotificationRetentionJob{
		purger:    purger,
		schedule:  schedule,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

func (j *NotificationRetentionJob) Name() string     { return NotificationRetentionJobName }
func (j *NotificationRetentionJob) Schedule() string { return j.schedule }

func (j *NotificationRetentionJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		return nil
	}
	n, err := j.purger.PurgeRead(ctx, j.retention)
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "purged read notifications", "count", n, "retention", j.retention)
	return nil
}
