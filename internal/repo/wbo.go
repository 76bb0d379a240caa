package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"WeaveSync/internal/collection"
	"WeaveSync/internal/model"

	"gorm.io/gorm"
)

// ephemeralCollections чистятся политикой хранения вместе с «пустыми» строками.
var ephemeralCollections = []string{"forms", "history", "tabs"}

// BatchOutcome - итог пакетного upsert по каждому элементу.
type BatchOutcome struct {
	Succeeded []string
	Failed    map[string]error
}

// WboRepository - операции над WBO. Все чтения скрывают строки с ttl <= now.
type WboRepository interface {
	// MaxTimestamp - MAX(modified) живых строк коллекции, 0 для пустой.
	MaxTimestamp(ctx context.Context, userID int64, collection int) (float64, error)
	CollectionTimestamps(ctx context.Context, userID int64) ([]model.CollectionTimestamp, error)
	CollectionCounts(ctx context.Context, userID int64) ([]model.CollectionCount, error)
	CollectionUsage(ctx context.Context, userID int64) ([]model.CollectionUsage, error)
	StorageTotalKB(ctx context.Context, userID int64) (float64, error)

	GetWbo(ctx context.Context, userID int64, collection int, id string) (*model.Wbo, error)
	GetWboList(ctx context.Context, userID int64, collection int, f WboFilter) ([]model.Wbo, error)

	UpsertWbo(ctx context.Context, w *model.Wbo) error
	UpsertWboBatch(ctx context.Context, userID int64, items []model.Wbo) (BatchOutcome, error)

	DeleteWbo(ctx context.Context, userID int64, collection int, id string) (int64, error)
	DeleteWboList(ctx context.Context, userID int64, collection int, f WboFilter) (int64, error)

	// Cleanup удаляет старые строки эфемерных коллекций и строки без payload.
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

type options struct {
	now func() time.Time
}

// Option настраивает репозиторий.
type Option func(*options)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

type wboRepo struct {
	db      *gorm.DB
	dialect Dialect
	options
}

// NewWboRepository создаёт реализацию WboRepository поверх gorm.
func NewWboRepository(db *gorm.DB, d Dialect, opts ...Option) WboRepository {
	return &wboRepo{db: db, dialect: d, options: newOptions(opts)}
}

func (r *wboRepo) nowUnix() int64 { return r.now().Unix() }

func (r *wboRepo) MaxTimestamp(ctx context.Context, userID int64, coll int) (float64, error) {
	var latest sql.NullFloat64
	err := r.db.WithContext(ctx).Model(&model.Wbo{}).
		Select("MAX(modified)").
		Where("user_id = ? AND collection = ? AND ttl > ?", userID, coll, r.nowUnix()).
		Row().Scan(&latest)
	if err != nil {
		return 0, err
	}
	return latest.Float64, nil
}

// CollectionTimestamps не фильтрует по ttl: время изменения коллекции видно и после истечения строк.
func (r *wboRepo) CollectionTimestamps(ctx context.Context, userID int64) ([]model.CollectionTimestamp, error) {
	var rows []model.CollectionTimestamp
	err := r.db.WithContext(ctx).Model(&model.Wbo{}).
		Select("collection, MAX(modified) AS modified").
		Where("user_id = ?", userID).
		Group("collection").
		Scan(&rows).Error
	return rows, err
}

func (r *wboRepo) CollectionCounts(ctx context.Context, userID int64) ([]model.CollectionCount, error) {
	var rows []model.CollectionCount
	err := r.db.WithContext(ctx).Model(&model.Wbo{}).
		Select("collection, COUNT(*) AS count").
		Where("user_id = ? AND ttl > ?", userID, r.nowUnix()).
		Group("collection").
		Scan(&rows).Error
	return rows, err
}

func (r *wboRepo) CollectionUsage(ctx context.Context, userID int64) ([]model.CollectionUsage, error) {
	var rows []model.CollectionUsage
	err := r.db.WithContext(ctx).Model(&model.Wbo{}).
		Select("collection, COALESCE(SUM(payload_size), 0) AS bytes").
		Where("user_id = ? AND ttl > ?", userID, r.nowUnix()).
		Group("collection").
		Scan(&rows).Error
	return rows, err
}

func (r *wboRepo) StorageTotalKB(ctx context.Context, userID int64) (float64, error) {
	var total sql.NullInt64
	err := r.db.WithContext(ctx).Model(&model.Wbo{}).
		Select("COALESCE(SUM(payload_size), 0)").
		Where("user_id = ? AND ttl > ?", userID, r.nowUnix()).
		Row().Scan(&total)
	if err != nil {
		return 0, err
	}
	return float64(total.Int64) / 1024, nil
}

// GetWbo возвращает gorm.ErrRecordNotFound и для отсутствующей, и для истёкшей записи.
func (r *wboRepo) GetWbo(ctx context.Context, userID int64, coll int, id string) (*model.Wbo, error) {
	var w model.Wbo
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND collection = ? AND id = ? AND ttl > ?", userID, coll, id, r.nowUnix()).
		Take(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *wboRepo) GetWboList(ctx context.Context, userID int64, coll int, f WboFilter) ([]model.Wbo, error) {
	return r.list(r.db.WithContext(ctx), userID, coll, f)
}

func (r *wboRepo) list(db *gorm.DB, userID int64, coll int, f WboFilter) ([]model.Wbo, error) {
	where, args := f.where(userID, coll, r.nowUnix(), true)
	query := r.dialect.SelectSQL(f.columns(), where, f.orderBy(), f.Limit, f.Offset)
	rows := []model.Wbo{}
	if err := db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *wboRepo) upsertArgs(w *model.Wbo) []any {
	return []any{w.UserID, w.Collection, w.ID, w.Modified, w.SortIndex, w.Payload, w.PayloadSize, w.TTL}
}

// UpsertWbo - полная замена строки по (user_id, collection, id).
func (r *wboRepo) UpsertWbo(ctx context.Context, w *model.Wbo) error {
	return r.db.WithContext(ctx).Exec(r.dialect.UpsertSQL(), r.upsertArgs(w)...).Error
}

// UpsertWboBatch пишет все элементы в одной транзакции, каждый под своей точкой сохранения.
// Ошибка строки откатывается до точки сохранения и попадает в Failed;
// обрыв соединения откатывает весь пакет и возвращается как ошибка.
func (r *wboRepo) UpsertWboBatch(ctx context.Context, userID int64, items []model.Wbo) (BatchOutcome, error) {
	var out BatchOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		out = BatchOutcome{Succeeded: make([]string, 0, len(items)), Failed: map[string]error{}}
		for i := range items {
			w := items[i]
			w.UserID = userID
			if err := tx.SavePoint("wbo_item").Error; err != nil {
				return fmt.Errorf("savepoint: %w", err)
			}
			err := tx.Exec(r.dialect.UpsertSQL(), r.upsertArgs(&w)...).Error
			if err == nil {
				out.Succeeded = append(out.Succeeded, w.ID)
				continue
			}
			if isConnectionError(err) {
				return err
			}
			if rbErr := tx.RollbackTo("wbo_item").Error; rbErr != nil {
				return fmt.Errorf("rollback to savepoint: %w", rbErr)
			}
			out.Failed[w.ID] = err
		}
		return nil
	})
	if err != nil {
		return BatchOutcome{}, err
	}
	return out, nil
}

func (r *wboRepo) DeleteWbo(ctx context.Context, userID int64, coll int, id string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND collection = ? AND id = ?", userID, coll, id).
		Delete(&model.Wbo{})
	return res.RowsAffected, res.Error
}

// DeleteWboList при сортировке/лимите/смещении сначала читает набор id тем же запросом,
// что и выдача списка, и удаляет по нему - так порядок совпадает на всех диалектах.
func (r *wboRepo) DeleteWboList(ctx context.Context, userID int64, coll int, f WboFilter) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !f.paged() {
			where, args := f.where(userID, coll, 0, false)
			res := tx.Where(where, args...).Delete(&model.Wbo{})
			deleted = res.RowsAffected
			return res.Error
		}
		f.Full = false
		rows, err := r.list(tx, userID, coll, f)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]string, 0, len(rows))
		for _, w := range rows {
			ids = append(ids, w.ID)
		}
		res := tx.Where("user_id = ? AND collection = ? AND id IN ?", userID, coll, ids).Delete(&model.Wbo{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func (r *wboRepo) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, fmt.Errorf("negative retention: %d", retentionDays)
	}
	codes := make([]int, 0, len(ephemeralCollections))
	for _, name := range ephemeralCollections {
		codes = append(codes, collection.NameToCode(name))
	}
	cutoff := float64(r.nowUnix() - int64(retentionDays)*86400)
	res := r.db.WithContext(ctx).
		Where("modified < ? AND (collection IN ? OR payload IS NULL)", cutoff, codes).
		Delete(&model.Wbo{})
	return res.RowsAffected, res.Error
}

// isConnectionError отличает сбой транспорта от ошибки конкретной строки.
func isConnectionError(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gorm.ErrInvalidTransaction)
}
