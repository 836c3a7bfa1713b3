package syncd_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwork/formsync/internal/queue"
	"github.com/fieldwork/formsync/internal/syncd"
	"github.com/fieldwork/formsync/internal/testutil"
)

func openQueue(t *testing.T) *queue.Store {
	t.Helper()
	q, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func enqueueN(t *testing.T, q *queue.Store, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		id, err := q.Enqueue(json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)), fmt.Sprintf("Form %d", i))
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func TestSyncNow_Offline(t *testing.T) {
	q := openQueue(t)
	enqueueN(t, q, 2)
	gw := testutil.NewScriptedGateway()
	e := syncd.New(q, gw, testutil.NewStaticProbe(false))

	stats := e.SyncNow(context.Background())

	assert.Equal(t, syncd.Stats{Message: syncd.MsgNoConnectivity}, stats)
	assert.Empty(t, gw.Calls(), "no gateway traffic while offline")
	assert.Equal(t, 2, q.CountPending())
}

func TestSyncNow_EmptyQueue(t *testing.T) {
	q := openQueue(t)
	gw := testutil.NewScriptedGateway()
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	stats := e.SyncNow(context.Background())
	assert.Equal(t, syncd.Stats{Message: syncd.MsgNothingToSync}, stats)
}

func TestSyncNow_UploadsSequentiallyInQueueOrder(t *testing.T) {
	q := openQueue(t)
	ids := enqueueN(t, q, 3)
	gw := testutil.NewScriptedGateway()
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	stats := e.SyncNow(context.Background())

	assert.Equal(t, syncd.Stats{Total: 3, Successful: 3, Message: "Synced 3/3 forms"}, stats)
	assert.Equal(t, ids, gw.Calls())
	for _, id := range ids {
		item, err := q.Get(id)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusSynced, item.Status)
	}
}

// Scenario: three queued items, two upload fine, one errors out.
func TestSyncNow_MixedOutcomes(t *testing.T) {
	q := openQueue(t)
	ids := enqueueN(t, q, 3)
	gw := testutil.NewScriptedGateway()
	gw.Script(ids[1], testutil.ErrorOutcome(errors.New("connection reset")))
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	stats := e.SyncNow(context.Background())

	assert.Equal(t, syncd.Stats{Total: 3, Successful: 2, Failed: 1, Message: "Synced 2/3 forms"}, stats)

	failed, err := q.Get(ids[1])
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, failed.Status, "one failure is not terminal")
	assert.Equal(t, 1, failed.SyncAttempts)

	for _, id := range []string{ids[0], ids[2]} {
		item, err := q.Get(id)
		require.NoError(t, err)
		assert.Equal(t, queue.StatusSynced, item.Status)
	}
}

func TestSyncNow_DownloadOverwritesLocalPayload(t *testing.T) {
	q := openQueue(t)
	ids := enqueueN(t, q, 1)
	gw := testutil.NewScriptedGateway()
	gw.Script(ids[0], testutil.DownloadOutcome(`{"v":"server"}`))
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	stats := e.SyncNow(context.Background())

	assert.Equal(t, 1, stats.Successful)
	item, err := q.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, queue.StatusSynced, item.Status)
	assert.JSONEq(t, `{"v":"server"}`, string(item.Payload))
}

func TestSyncNow_ConflictParksItemWithSnapshot(t *testing.T) {
	q := openQueue(t)
	ids := enqueueN(t, q, 1)
	gw := testutil.NewScriptedGateway()
	gw.Script(ids[0], testutil.ConflictOutcome(`{"v":"theirs"}`))
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	stats := e.SyncNow(context.Background())

	assert.Equal(t, syncd.Stats{Total: 1, Conflicts: 1, Message: "Synced 0/1 forms"}, stats)
	item, err := q.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, item.Status)
	assert.JSONEq(t, `{"v":"theirs"}`, string(item.ServerData))
	assert.JSONEq(t, `{"n":0}`, string(item.Payload), "local payload preserved for diffing")
	assert.Zero(t, item.SyncAttempts, "conflict is not a retryable failure")
}

func TestSyncNow_RetryExhaustion(t *testing.T) {
	q := openQueue(t)
	ids := enqueueN(t, q, 1)
	gw := testutil.NewScriptedGateway()
	gw.SetFallback(testutil.RejectionOutcome("server said no"))
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	// Two failures: still pending, still retried.
	for i := 1; i <= 2; i++ {
		stats := e.SyncNow(context.Background())
		assert.Equal(t, 1, stats.Failed, "cycle %d", i)

		item, err := q.Get(ids[0])
		require.NoError(t, err)
		assert.Equal(t, queue.StatusPending, item.Status)
		assert.Equal(t, i, item.SyncAttempts)
	}

	// Third failure exhausts the budget.
	stats := e.SyncNow(context.Background())
	assert.Equal(t, 1, stats.Failed)

	item, err := q.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, queue.StatusFailed, item.Status)
	assert.Equal(t, 3, item.SyncAttempts)
	assert.Empty(t, q.ListPending().Items, "failed items leave the sweep")

	// Subsequent cycles see nothing to do.
	assert.Equal(t, syncd.MsgNothingToSync, e.SyncNow(context.Background()).Message)
}

func TestSyncNow_GatewayPanicIsContained(t *testing.T) {
	q := openQueue(t)
	ids := enqueueN(t, q, 2)
	gw := testutil.NewScriptedGateway()
	gw.Script(ids[0], testutil.PanicOutcome())
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	stats := e.SyncNow(context.Background())

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Successful, "loop continues past a panicking item")
}

func TestSyncNow_UnknownActionCountsAsFailure(t *testing.T) {
	q := openQueue(t)
	ids := enqueueN(t, q, 1)
	gw := testutil.NewScriptedGateway()
	gw.Script(ids[0], testutil.Outcome{Result: syncd.SyncResult{Success: true, Action: "sideways"}})
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	stats := e.SyncNow(context.Background())
	assert.Equal(t, 1, stats.Failed)
}

func TestSyncNow_SingleFlight(t *testing.T) {
	q := openQueue(t)
	ids := enqueueN(t, q, 1)
	gw := testutil.NewScriptedGateway()
	gw.Hold()
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	before, err := q.Get(ids[0])
	require.NoError(t, err)

	first := make(chan syncd.Stats, 1)
	go func() { first <- e.SyncNow(context.Background()) }()

	// Wait for the in-flight cycle to reach the gateway.
	require.Eventually(t, func() bool { return len(gw.Calls()) == 1 }, time.Second, time.Millisecond)

	stats := e.SyncNow(context.Background())
	assert.Equal(t, syncd.Stats{Message: syncd.MsgAlreadySyncing}, stats)

	during, err := q.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, during.UpdatedAt, "short-circuit must not touch the queue")

	gw.Release()
	assert.Equal(t, 1, (<-first).Successful)
}

func TestSubscribe_OrderAndCancel(t *testing.T) {
	q := openQueue(t)
	gw := testutil.NewScriptedGateway()
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	var order []string
	cancelA := e.Subscribe(func(syncd.Stats) { order = append(order, "a") })
	e.Subscribe(func(syncd.Stats) { order = append(order, "b") })

	e.SyncNow(context.Background())
	assert.Equal(t, []string{"a", "b"}, order, "registration order, even for no-op cycles")

	cancelA()
	order = nil
	e.SyncNow(context.Background())
	assert.Equal(t, []string{"b"}, order)
}

func TestSubscribe_NoBroadcastOnShortCircuit(t *testing.T) {
	q := openQueue(t)
	enqueueN(t, q, 1)
	gw := testutil.NewScriptedGateway()
	gw.Hold()
	e := syncd.New(q, gw, testutil.NewStaticProbe(true))

	notifications := make(chan syncd.Stats, 4)
	e.Subscribe(func(s syncd.Stats) { notifications <- s })

	go e.SyncNow(context.Background())
	require.Eventually(t, func() bool { return len(gw.Calls()) == 1 }, time.Second, time.Millisecond)

	e.SyncNow(context.Background()) // short-circuits
	gw.Release()

	stats := <-notifications
	assert.Equal(t, 1, stats.Total, "only the real cycle broadcasts")
	assert.Empty(t, notifications)
}

func TestStartStop_TimerDrivesCycles(t *testing.T) {
	q := openQueue(t)
	enqueueN(t, q, 1)
	gw := testutil.NewScriptedGateway()
	clock := testutil.NewManualClock(time.UnixMilli(1_700_000_000_000))
	e := syncd.New(q, gw, testutil.NewStaticProbe(true), syncd.WithClock(clock))

	notifications := make(chan syncd.Stats, 4)
	e.Subscribe(func(s syncd.Stats) { notifications <- s })

	e.Start()
	defer e.Stop()
	assert.True(t, e.Running())

	clock.Tick()
	stats := <-notifications
	assert.Equal(t, 1, stats.Successful)

	// Second tick finds nothing pending.
	clock.Tick()
	assert.Equal(t, syncd.MsgNothingToSync, (<-notifications).Message)

	e.Stop()
	assert.False(t, e.Running())
}

func TestStart_ReplacesExistingTimer(t *testing.T) {
	q := openQueue(t)
	gw := testutil.NewScriptedGateway()
	clock := testutil.NewManualClock(time.UnixMilli(0))
	e := syncd.New(q, gw, testutil.NewStaticProbe(true), syncd.WithClock(clock))

	notifications := make(chan syncd.Stats, 8)
	e.Subscribe(func(s syncd.Stats) { notifications <- s })

	e.Start()
	e.Start() // must stop the first timer, not double the schedule
	defer e.Stop()

	clock.Tick()
	<-notifications

	// One tick, one cycle: a duplicated timer would race a second
	// consumer onto the shared channel and produce a second broadcast.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, notifications)
}
