package reports

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"simutu-ng/internal/access"
	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/models"
)

type Reporter struct {
	source   Source
	resolver *access.Resolver
	cache    Cache
	logger   *logrus.Logger
	slow     time.Duration
	now      func() time.Time
}

type Option func(*Reporter)

func WithCache(c Cache) Option {
	return func(r *Reporter) {
		if c != nil {
			r.cache = c
		}
	}
}

func WithSlowThreshold(d time.Duration) Option {
	return func(r *Reporter) { r.slow = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

func NewReporter(source Source, resolver *access.Resolver, logger *logrus.Logger, opts ...Option) *Reporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Reporter{
		source:   source,
		resolver: resolver,
		cache:    NopCache{},
		logger:   logger,
		slow:     500 * time.Millisecond,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// cacheKey: имя отчёта + область видимости актора + параметры
func cacheKey(name string, scope access.Scope, params string) string {
	sum := sha256.Sum256([]byte(scope.Key() + "|" + params))
	return name + ":" + hex.EncodeToString(sum[:16])
}

// cached достаёт отчёт из кэша или строит его; сбои кэша не мешают отчёту
func cached[T any](ctx context.Context, r *Reporter, name string, scope access.Scope, params string, build func() (*T, error)) (*T, error) {
	key := cacheKey(name, scope, params)
	log := r.logger.WithFields(logrus.Fields{"module": "reports", "func": name})

	var hit T
	ok, err := r.cache.Get(ctx, key, &hit)
	if err != nil {
		log.WithError(err).Warn("report cache get failed")
	}
	if ok {
		return &hit, nil
	}

	start := time.Now()
	out, err := build()
	if err != nil {
		return nil, err
	}
	if d := time.Since(start); d >= r.slow {
		log.WithFields(logrus.Fields{"ms": d.Milliseconds(), "params": params}).Warn("slow report")
	}

	if err := r.cache.Set(ctx, key, out); err != nil {
		log.WithError(err).Warn("report cache set failed")
	}
	return out, nil
}

func unitNotFound() error {
	return apperrors.NotFound("отделение не найдено")
}

// visibleUnit отдаёт отделение в зоне видимости, иначе NotFound
func (r *Reporter) visibleUnit(ctx context.Context, actor models.Actor, unitID uuid.UUID) (*models.Unit, access.Scope, error) {
	scope, err := r.resolver.AllowedUnits(ctx, actor)
	if err != nil {
		return nil, access.Scope{}, err
	}
	if !scope.Contains(unitID) {
		return nil, access.Scope{}, unitNotFound()
	}

	unit, err := r.source.Unit(ctx, unitID)
	if err != nil {
		return nil, access.Scope{}, fmt.Errorf("get unit: %w", err)
	}
	if unit == nil {
		return nil, access.Scope{}, unitNotFound()
	}
	return unit, scope, nil
}

var monthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthBounds(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, -1)
}
