package activity

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const cleanupLockKey = "lock:activity-log-cleanup"

// Locker: блокировка между экземплярами сервиса, снимается только по истечении ttl
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (ok bool, err error)
}

// CleanupTask удаляет старые записи журнала: сразу при старте и далее раз в Interval.
// Живёт, пока не отменён ctx, переданный в Run.
type CleanupTask struct {
	Repo      Repo
	Retention time.Duration
	Interval  time.Duration
	Locker    Locker // nil: без блокировки
	Logger    *logrus.Logger
	Now       func() time.Time
}

func (t *CleanupTask) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *CleanupTask) log() *logrus.Entry {
	logger := t.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithFields(logrus.Fields{"module": "activity", "func": "CleanupTask"})
}

// RunOnce делает один проход; пропускается, если блокировку держит другой экземпляр
func (t *CleanupTask) RunOnce(ctx context.Context) (int64, error) {
	if t.Locker != nil {
		// блокировка живёт почти весь интервал: остальные экземпляры его пропускают
		ok, err := t.Locker.TryLock(ctx, cleanupLockKey, t.Interval*9/10)
		if err != nil {
			t.log().WithError(err).Warn("error obtaining cleanup lock; proceeding without lock")
		} else if !ok {
			t.log().Debug("cleanup lock held by another instance, skipping")
			return 0, nil
		}
	}

	cutoff := t.now().Add(-t.Retention)
	deleted, err := t.Repo.DeleteActivityLogsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	t.log().WithFields(logrus.Fields{
		"deleted": deleted,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("activity log cleanup done")
	return deleted, nil
}

func (t *CleanupTask) Run(ctx context.Context) {
	t.log().WithFields(logrus.Fields{
		"retention": t.Retention.String(),
		"interval":  t.Interval.String(),
	}).Info("activity log cleanup scheduled")

	run := func() {
		if _, err := t.RunOnce(ctx); err != nil && ctx.Err() == nil {
			t.log().WithError(err).Error("activity log cleanup failed")
		}
	}

	run()

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log().Info("activity log cleanup stopped")
			return
		case <-ticker.C:
			run()
		}
	}
}
