package domain

import (
	"fmt"
	"time"
)

// SyncRunState is the lifecycle state of a sync run.
type SyncRunState string

// Sync run states.
const (
	SyncIdle      SyncRunState = "idle"
	SyncTriggered SyncRunState = "triggered"
	SyncPolling   SyncRunState = "polling"
	SyncSucceeded SyncRunState = "succeeded"
	SyncFailed    SyncRunState = "failed"
	SyncCanceled  SyncRunState = "canceled"
)

// IsTerminal reports whether no further transitions are possible.
func (s SyncRunState) IsTerminal() bool {
	return s == SyncSucceeded || s == SyncFailed || s == SyncCanceled
}

// String returns the string representation.
func (s SyncRunState) String() string {
	return string(s)
}

// transitions lists the legal next states for each state.
var transitions = map[SyncRunState][]SyncRunState{
	SyncIdle:      {SyncTriggered},
	SyncTriggered: {SyncPolling, SyncFailed, SyncCanceled},
	SyncPolling:   {SyncSucceeded, SyncFailed, SyncCanceled},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to SyncRunState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SyncRun is one trigger-and-poll cycle for a connector.
type SyncRun struct {
	// ID is a unique run identifier (UUID).
	ID string `json:"id"`

	// ConnectorID is the connector being synced.
	ConnectorID string `json:"connector_id"`

	// State is the current lifecycle state.
	State SyncRunState `json:"state"`

	// StartedAt is when the run was triggered.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the run reached a terminal state.
	EndedAt time.Time `json:"ended_at,omitzero"`

	// Polls counts status requests made while polling.
	Polls int `json:"polls"`

	// RowsSynced is reported by the service when available.
	RowsSynced *int64 `json:"rows_synced,omitempty"`

	// Err is set for Failed and Canceled runs.
	Err error `json:"-"`

	// Error is the message form of Err, kept for persisted runs.
	Error string `json:"error,omitempty"`
}

// NewSyncRun creates an Idle run for a connector.
func NewSyncRun(id, connectorID string) *SyncRun {
	return &SyncRun{
		ID:          id,
		ConnectorID: connectorID,
		State:       SyncIdle,
	}
}

// Transition moves the run to a new state, stamping EndedAt on terminal states.
func (r *SyncRun) Transition(to SyncRunState, at time.Time) error {
	if !CanTransition(r.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, to)
	}
	r.State = to
	if to == SyncTriggered {
		r.StartedAt = at
	}
	if to.IsTerminal() {
		r.EndedAt = at
	}
	return nil
}

// Fail moves the run to Failed with the given cause.
func (r *SyncRun) Fail(err error, at time.Time) error {
	if tErr := r.Transition(SyncFailed, at); tErr != nil {
		return tErr
	}
	r.setErr(err)
	return nil
}

// Cancel moves the run to Canceled with the given cause.
func (r *SyncRun) Cancel(err error, at time.Time) error {
	if tErr := r.Transition(SyncCanceled, at); tErr != nil {
		return tErr
	}
	r.setErr(err)
	return nil
}

func (r *SyncRun) setErr(err error) {
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration returns the run's elapsed time, or zero if it never started.
func (r *SyncRun) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
