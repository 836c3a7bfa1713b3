package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fieldwork/formsync/internal/queue"
	"github.com/fieldwork/formsync/internal/syncd"
)

// Outcome scripts the gateway's behavior for one submission.
// Exactly one of Result/Err/Panics is meaningful.
type Outcome struct {
	Result syncd.SyncResult
	Err    error
	Panics bool
}

// UploadOutcome scripts a plain successful upload.
func UploadOutcome() Outcome {
	return Outcome{Result: syncd.SyncResult{Success: true, Action: syncd.ActionUpload}}
}

// DownloadOutcome scripts "server is newer" with the given snapshot.
func DownloadOutcome(serverData string) Outcome {
	return Outcome{Result: syncd.SyncResult{
		Success:    true,
		Action:     syncd.ActionDownload,
		ServerData: json.RawMessage(serverData),
	}}
}

// ConflictOutcome scripts a divergence with the given server snapshot.
func ConflictOutcome(serverData string) Outcome {
	o := Outcome{Result: syncd.SyncResult{
		Success: true,
		Action:  syncd.ActionConflict,
	}}
	if serverData != "" {
		o.Result.ServerData = json.RawMessage(serverData)
	}
	return o
}

// RejectionOutcome scripts an explicit gateway failure result.
func RejectionOutcome(message string) Outcome {
	return Outcome{Result: syncd.SyncResult{Success: false, Message: message}}
}

// ErrorOutcome scripts a transport-level error.
func ErrorOutcome(err error) Outcome {
	return Outcome{Err: err}
}

// PanicOutcome scripts a gateway that panics mid-call.
func PanicOutcome() Outcome {
	return Outcome{Panics: true}
}

// ScriptedGateway is a syncd.Gateway whose per-item behavior is
// predetermined by the test. Calls are recorded in order.
//
// Thread-safety: safe for concurrent use.
type ScriptedGateway struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
	fallback Outcome
	calls    []string

	// gate, when set, blocks SyncItem until released. Used to hold a
	// cycle open while a test probes the single-flight guard.
	gate chan struct{}

	submitResult syncd.SubmitResult
	submitErr    error
	submitCalls  int
}

// NewScriptedGateway creates a gateway whose fallback outcome is a plain
// upload success.
func NewScriptedGateway() *ScriptedGateway {
	return &ScriptedGateway{
		outcomes: make(map[string]Outcome),
		fallback: UploadOutcome(),
	}
}

// Script sets the outcome for one submission id.
func (g *ScriptedGateway) Script(id string, o Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outcomes[id] = o
}

// SetFallback sets the outcome for ids without an explicit script.
func (g *ScriptedGateway) SetFallback(o Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fallback = o
}

// Hold makes subsequent SyncItem calls block until Release.
func (g *ScriptedGateway) Hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gate = make(chan struct{})
}

// Release unblocks held SyncItem calls.
func (g *ScriptedGateway) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gate != nil {
		close(g.gate)
		g.gate = nil
	}
}

// Calls returns the submission ids synced so far, in call order.
func (g *ScriptedGateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls))
	copy(out, g.calls)
	return out
}

// SyncItem implements syncd.Gateway.
func (g *ScriptedGateway) SyncItem(_ context.Context, item queue.Item) (syncd.SyncResult, error) {
	g.mu.Lock()
	g.calls = append(g.calls, item.ID)
	o, scripted := g.outcomes[item.ID]
	if !scripted {
		o = g.fallback
	}
	gate := g.gate
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if o.Panics {
		panic("scripted gateway panic")
	}
	return o.Result, o.Err
}

// SetSubmit scripts the response to direct Submit calls.
func (g *ScriptedGateway) SetSubmit(res syncd.SubmitResult, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitResult, g.submitErr = res, err
}

// SubmitCalls returns how many direct submissions were attempted.
func (g *ScriptedGateway) SubmitCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitCalls
}

// Submit implements syncd.Gateway.
func (g *ScriptedGateway) Submit(context.Context, json.RawMessage) (syncd.SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitCalls++
	return g.submitResult, g.submitErr
}

// StaticProbe is a syncd.Probe with a settable answer.
type StaticProbe struct {
	mu     sync.Mutex
	online bool
}

// NewStaticProbe creates a probe reporting the given state.
func NewStaticProbe(online bool) *StaticProbe {
	return &StaticProbe{online: online}
}

// SetOnline changes the probe's answer.
func (p *StaticProbe) SetOnline(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = online
}

// Online implements syncd.Probe.
func (p *StaticProbe) Online(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}
