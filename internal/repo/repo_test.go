package repo

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"WeaveSync/internal/model"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

// testNow - фиксированное «сейчас» для репозиториев в тестах.
var testNow = time.Unix(1_700_000_000, 0)

func fixedClock() time.Time { return testNow }

// newTestDB открывает отдельную in-memory SQLite (modernc.org/sqlite) на каждый тест
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:weave_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, _, err := InitDB("sqlite", dsn, zap.NewNop().Sugar())
	require.NoError(t, err, "failed to open sqlite (modernc)")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestStorage(t *testing.T) Storage {
	t.Helper()
	return NewStorage(newTestDB(t), sqliteDialect{}, WithClock(fixedClock))
}

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }
func f64Ptr(v float64) *float64 {
	return &v
}

// mkWbo - живая запись с payload.
func mkWbo(userID int64, coll int, id string, modified float64, sortIndex int64, payload string) model.Wbo {
	size := int64(len(payload))
	return model.Wbo{
		UserID:      userID,
		Collection:  coll,
		ID:          id,
		Modified:    modified,
		SortIndex:   &sortIndex,
		Payload:     &payload,
		PayloadSize: &size,
		TTL:         model.TTLNever,
	}
}
