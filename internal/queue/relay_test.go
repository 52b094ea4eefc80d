package queue

import (
    "context"
    "encoding/json"
    "errors"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/wild-pasta-booking/internal/database"
    "github.com/iliyamo/wild-pasta-booking/internal/logging"
    "github.com/iliyamo/wild-pasta-booking/internal/repository"
)

type published struct {
    key, id string
    body    []byte
}

type fakePublisher struct {
    sent   []published
    failAt int // 1-based publish number that fails; 0 never
    calls  int
}

func (p *fakePublisher) Publish(_ context.Context, key string, body []byte, id string) error {
    p.calls++
    if p.calls == p.failAt {
        return errors.New("broker unavailable")
    }
    p.sent = append(p.sent, published{key: key, id: id, body: body})
    return nil
}

func newOutbox(t *testing.T) *repository.OutboxRepo {
    t.Helper()
    db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "outbox.db"))
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
    repo := repository.NewOutboxRepo(db, database.SQLite)

    tx, err := db.Begin()
    require.NoError(t, err)
    at := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)
    for _, ev := range []OrderEvent{
        {Type: EventOrderConfirmed, Kind: KindTakeout, OrderNumber: "TKO20250601-AAAAA"},
        {Type: EventOrderConfirmed, Kind: KindReservation, OrderNumber: "ORD20250601-BBBBB"},
        {Type: EventOrderCancelled, Kind: KindTakeout, OrderNumber: "TKO20250601-AAAAA"},
    } {
        require.NoError(t, repo.EmitTx(context.Background(), tx, ev.Type, ev.OrderNumber, ev, at))
    }
    require.NoError(t, tx.Commit())
    return repo
}

func TestRelayPublishesInOrder(t *testing.T) {
    repo := newOutbox(t)
    pub := &fakePublisher{}
    r := NewRelay(repo, pub, logging.Discard())

    n, err := r.RunOnce(context.Background())
    require.NoError(t, err)
    assert.Equal(t, 3, n)
    require.Len(t, pub.sent, 3)
    assert.Equal(t, []string{EventOrderConfirmed, EventOrderConfirmed, EventOrderCancelled},
        []string{pub.sent[0].key, pub.sent[1].key, pub.sent[2].key})
    var last OrderEvent
    require.NoError(t, json.Unmarshal(pub.sent[2].body, &last))
    assert.Equal(t, "TKO20250601-AAAAA", last.OrderNumber)
    assert.NotEqual(t, pub.sent[0].id, pub.sent[2].id)

    pending, err := repo.FetchPending(context.Background(), 10)
    require.NoError(t, err)
    assert.Empty(t, pending)

    n, err = r.RunOnce(context.Background())
    require.NoError(t, err)
    assert.Zero(t, n)
}

func TestRelayStopsAtFailedPublish(t *testing.T) {
    repo := newOutbox(t)
    pub := &fakePublisher{failAt: 2}
    r := NewRelay(repo, pub, logging.Discard())

    n, err := r.RunOnce(context.Background())
    require.Error(t, err)
    assert.Equal(t, 1, n)

    pending, err := repo.FetchPending(context.Background(), 10)
    require.NoError(t, err)
    require.Len(t, pending, 2)
    assert.Equal(t, "ORD20250601-BBBBB", pending[0].AggregateID)
    assert.Equal(t, 1, pending[0].Attempts)
    assert.Equal(t, 0, pending[1].Attempts)

    n, err = r.RunOnce(context.Background())
    require.NoError(t, err)
    assert.Equal(t, 2, n)
}
