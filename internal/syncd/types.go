package syncd

import (
	"context"
	"encoding/json"

	"github.com/fieldwork/formsync/internal/queue"
)

// Action classifies what a successful gateway sync decided for one item.
type Action string

const (
	// ActionUpload means the local submission was accepted as-is.
	ActionUpload Action = "upload"
	// ActionDownload means the server's version is newer; its snapshot
	// replaces the local payload.
	ActionDownload Action = "download"
	// ActionConflict means local and remote diverged and neither side is
	// authoritative without user input.
	ActionConflict Action = "conflict"
)

// SyncResult is the gateway's verdict for one queued submission.
// ServerData carries the server snapshot for download (authoritative
// replacement) and conflict (recorded for later diffing).
type SyncResult struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Action     Action          `json:"action"`
	ServerData json.RawMessage `json:"serverData,omitempty"`
}

// SubmitResult is the gateway's response to a direct online submission
// attempt made outside the sync loop.
type SubmitResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Gateway is the remote submission service the engine reconciles against.
// Implementations own their timeouts; the engine has none of its own.
type Gateway interface {
	// Submit sends a payload directly, outside the sync loop.
	Submit(ctx context.Context, payload json.RawMessage) (SubmitResult, error)
	// SyncItem reconciles one queued submission with the server.
	SyncItem(ctx context.Context, item queue.Item) (SyncResult, error)
}

// Probe reports whether the network is usable. Checked once per cycle,
// before any gateway call.
type Probe interface {
	Online(ctx context.Context) bool
}

// Stats is the aggregate report of one sync cycle. Ephemeral: pushed to
// subscribers and returned to the caller, never persisted.
type Stats struct {
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
	Conflicts  int    `json:"conflicts"`
	Message    string `json:"message"`
}

// Cycle result messages. Stable strings: the CLI and tests match on them.
const (
	MsgAlreadySyncing = "Sync already in progress"
	MsgNoConnectivity = "No network connectivity"
	MsgNothingToSync  = "No forms to sync"
)
