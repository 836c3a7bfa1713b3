package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/fieldwork/formsync/internal/queue"
	"github.com/fieldwork/formsync/internal/syncd"
	"github.com/fieldwork/formsync/internal/testutil"
)

// Snapshot is the deterministic trace of a scenario run: per-cycle stats
// plus the final queue state. Queue ids carry wall-clock timestamps, so
// items are identified by title and seed order instead.
type Snapshot struct {
	Scenario string        `json:"scenario"`
	Cycles   []syncd.Stats `json:"cycles"`
	Items    []ItemState   `json:"items"`
}

// ItemState is the observable end state of one seeded item.
type ItemState struct {
	Title        string          `json:"title"`
	Status       queue.Status    `json:"status"`
	SyncAttempts int             `json:"syncAttempts"`
	Payload      json.RawMessage `json:"payload"`
	ServerData   json.RawMessage `json:"serverData,omitempty"`
}

// Run executes a scenario against a fresh queue, a scripted gateway, and
// a real engine, and returns the snapshot.
func Run(t *testing.T, sc *Scenario) (*Snapshot, error) {
	t.Helper()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	q, err := queue.Open(filepath.Join(t.TempDir(), "harness.db"), queue.WithLogger(quiet))
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	defer q.Close()

	gw := testutil.NewScriptedGateway()
	ids := make([]string, len(sc.Items))
	for i, item := range sc.Items {
		payload, err := json.Marshal(item.Payload)
		if err != nil {
			return nil, fmt.Errorf("item %d: encode payload: %w", i, err)
		}
		id, err := q.Enqueue(payload, item.Title)
		if err != nil {
			return nil, fmt.Errorf("item %d: enqueue: %w", i, err)
		}
		ids[i] = id

		outcome, err := scriptOutcome(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		gw.Script(id, outcome)
	}

	opts := []syncd.Option{syncd.WithEngineLogger(quiet)}
	if sc.MaxAttempts > 0 {
		opts = append(opts, syncd.WithMaxAttempts(sc.MaxAttempts))
	}
	engine := syncd.New(q, gw, testutil.NewStaticProbe(sc.Online), opts...)

	snap := &Snapshot{Scenario: sc.Name, Cycles: make([]syncd.Stats, 0, sc.Cycles)}
	for i := 0; i < sc.Cycles; i++ {
		snap.Cycles = append(snap.Cycles, engine.SyncNow(context.Background()))
	}

	for i, id := range ids {
		item, err := q.Get(id)
		if err != nil {
			return nil, fmt.Errorf("item %d: read back: %w", i, err)
		}
		snap.Items = append(snap.Items, ItemState{
			Title:        item.FormTitle,
			Status:       item.Status,
			SyncAttempts: item.SyncAttempts,
			Payload:      item.Payload,
			ServerData:   item.ServerData,
		})
	}
	return snap, nil
}

func scriptOutcome(item ScenarioItem) (testutil.Outcome, error) {
	serverData := func() (string, error) {
		if item.ServerData == nil {
			return "", nil
		}
		data, err := json.Marshal(item.ServerData)
		if err != nil {
			return "", fmt.Errorf("encode serverData: %w", err)
		}
		return string(data), nil
	}

	switch item.Outcome {
	case "", "upload":
		return testutil.UploadOutcome(), nil
	case "download":
		data, err := serverData()
		if err != nil {
			return testutil.Outcome{}, err
		}
		if data == "" {
			return testutil.Outcome{}, errors.New("download outcome needs serverData")
		}
		return testutil.DownloadOutcome(data), nil
	case "conflict":
		data, err := serverData()
		if err != nil {
			return testutil.Outcome{}, err
		}
		return testutil.ConflictOutcome(data), nil
	case "reject":
		return testutil.RejectionOutcome(item.Message), nil
	case "error":
		return testutil.ErrorOutcome(errors.New("scripted transport error")), nil
	case "panic":
		return testutil.PanicOutcome(), nil
	default:
		return testutil.Outcome{}, fmt.Errorf("unknown outcome %q", item.Outcome)
	}
}
