package repository

import (
    "context"
    "path/filepath"
    "strings"
    "testing"
    "time"
    "unicode/utf8"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/wild-pasta-booking/internal/database"
    "github.com/iliyamo/wild-pasta-booking/internal/model"
)

func openTestDB(t *testing.T) *PaymentRepo {
    t.Helper()
    db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "repo.db"))
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
    return NewPaymentRepo(db, database.SQLite)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
    assert.Equal(t, "abc", truncate("abc", 5))
    assert.Equal(t, "ab", truncate("abc", 2))
    // Each of these characters is three bytes.
    assert.Equal(t, "交易", truncate("交易成功", 7))
    assert.Equal(t, "交易", truncate("交易成功", 6))
    assert.Equal(t, "", truncate("交易成功", 2))

    long := "a" + strings.Repeat("交易失敗", 40)
    cut := truncate(long, 255)
    assert.True(t, utf8.ValidString(cut))
    assert.Equal(t, 253, len(cut))
}

func TestFinalizeStoresLongGatewayMessage(t *testing.T) {
    r := openTestDB(t)
    ctx := context.Background()
    now := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
    p := &model.PaymentRequest{
        OrderNumber: "TKO20250601-A1B2C",
        OrderTime:   now,
        Name:        "小華",
        Phone:       "0987654321",
        Email:       "hua@example.com",
        Date:        "2025-06-01",
        StartTime:   "18:00",
        EndTime:     "18:30",
        List:        "pastaA_2",
        Count:       2,
        Price:       600,
        Status:      model.PaymentPending,
        UpdatedAt:   now,
    }
    tx, err := r.db.Begin()
    require.NoError(t, err)
    require.NoError(t, r.CreateTx(ctx, tx, p))
    require.NoError(t, tx.Commit())

    msg := strings.Repeat("授權失敗", 30)
    tx, err = r.db.Begin()
    require.NoError(t, err)
    require.NoError(t, r.FinalizeTx(ctx, tx, p.OrderNumber, model.PaymentFailed, "2506011000001234", "10100248", msg, now))
    require.NoError(t, tx.Commit())

    got, err := r.GetByOrderNumber(ctx, p.OrderNumber)
    require.NoError(t, err)
    assert.Equal(t, model.PaymentFailed, got.Status)
    assert.True(t, utf8.ValidString(got.RtnMsg))
    assert.True(t, strings.HasPrefix(msg, got.RtnMsg))

    tx, err = r.db.Begin()
    require.NoError(t, err)
    defer tx.Rollback()
    assert.ErrorIs(t, r.FinalizeTx(ctx, tx, p.OrderNumber, model.PaymentSuccess, "", "1", "", now), ErrConflict)
}

func TestClaimOrderNumberOnce(t *testing.T) {
    p := openTestDB(t)
    r := NewOrderNumberRepo(p.db, database.SQLite)
    ctx := context.Background()
    now := time.Now()

    tx, err := p.db.Begin()
    require.NoError(t, err)
    require.NoError(t, r.ClaimTx(ctx, tx, "TKO20250601-AAAAA", "takeout", now))
    require.NoError(t, tx.Commit())

    tx, err = p.db.Begin()
    require.NoError(t, err)
    defer tx.Rollback()
    assert.ErrorIs(t, r.ClaimTx(ctx, tx, "TKO20250601-AAAAA", "reservation", now), ErrDuplicateOrderNumber)
}
