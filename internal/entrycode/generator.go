package entrycode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"simutu-ng/internal/apperrors"
	"simutu-ng/internal/retry"
)

const prefix = "NM"

// ErrCodeTaken: хранилище отклонило вставку из-за уникального индекса на коде
var ErrCodeTaken = errors.New("entry code already taken")

type Store interface {
	// LastEntryCode: наибольший код с данным префиксом, включая удалённые; "" если нет
	LastEntryCode(ctx context.Context, prefix string) (string, error)
}

type Generator struct {
	store  Store
	retry  *retry.Config
	logger *logrus.Logger
}

func New(store Store, cfg *retry.Config, logger *logrus.Logger) *Generator {
	if cfg == nil {
		cfg = retry.DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Generator{store: store, retry: cfg, logger: logger}
}

// DayPrefix: NM/YYYYMMDD/
func DayPrefix(date time.Time) string {
	return fmt.Sprintf("%s/%s/", prefix, date.Format("20060102"))
}

func Format(date time.Time, seq int) string {
	return fmt.Sprintf("%s%05d", DayPrefix(date), seq)
}

func parseSequence(code, dayPrefix string) (int, bool) {
	if !strings.HasPrefix(code, dayPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(code, dayPrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Next выдаёт следующий код за день. Сам по себе не защищён от гонки, см. Create.
func (g *Generator) Next(ctx context.Context, date time.Time) (string, error) {
	p := DayPrefix(date)

	last, err := g.store.LastEntryCode(ctx, p)
	if err != nil {
		return "", fmt.Errorf("last entry code: %w", err)
	}

	seq := 0
	if last != "" {
		n, ok := parseSequence(last, p)
		if !ok {
			return "", fmt.Errorf("malformed entry code %q", last)
		}
		seq = n
	}

	return Format(date, seq+1), nil
}

// Create генерирует код и вызывает insert; при ErrCodeTaken код
// перегенерируется. После исчерпания попыток возвращается ConflictError.
func (g *Generator) Create(ctx context.Context, date time.Time, insert func(code string) error) (string, error) {
	var code string
	attempt := 0

	err := retry.DoIf(ctx, g.retry, func(err error) bool {
		return errors.Is(err, ErrCodeTaken)
	}, func() error {
		attempt++
		next, err := g.Next(ctx, date)
		if err != nil {
			return err
		}
		if err := insert(next); err != nil {
			if errors.Is(err, ErrCodeTaken) {
				g.logger.WithFields(logrus.Fields{
					"module":  "entrycode",
					"func":    "Create",
					"code":    next,
					"attempt": attempt,
				}).Debug("entry code collision, regenerating")
			}
			return err
		}
		code = next
		return nil
	})

	if errors.Is(err, ErrCodeTaken) {
		return "", apperrors.ConflictWrap("не удалось получить уникальный код записи", err)
	}
	if err != nil {
		return "", err
	}
	return code, nil
}
