// Package elttwin is an in-memory twin of the ELT REST API for tests.
//
// A Twin holds groups, connectors, schemas and destinations, answers the
// same paths and envelopes as the real service, and simulates syncs: a
// triggered connector reports "syncing" for a configurable number of
// status polls and then completes with the configured outcome. Failures
// can be injected per path to exercise retry handling.
package elttwin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Outcome is how a simulated sync ends.
type Outcome string

// Sync outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeNever   Outcome = "never"
)

// Connector is a connector fixture.
type Connector struct {
	ID          string
	GroupID     string
	Service     string
	Schema      string
	Paused      bool
	SetupState  string
	SyncState   string
	SucceededAt time.Time
	FailedAt    time.Time
	RowsSynced  *int64

	// PollsToFinish is how many status polls report "syncing" after a trigger.
	PollsToFinish int

	// Outcome decides how a triggered sync completes.
	Outcome Outcome

	pending int
	syncs   int
	cancels int
}

// Column is a column fixture.
type Column struct {
	Name       string
	PrimaryKey bool
	Disabled   bool
}

type table struct {
	nameInDest string
	enabled    bool
	columns    []Column
}

type schema struct {
	nameInDest string
	enabled    bool
	tables     map[string]*table
}

type group struct {
	id       string
	name     string
	database string
	service  string
}

type failure struct {
	status     int
	retryAfter string
}

// Twin is the fake service.
type Twin struct {
	mu sync.Mutex

	accountID string
	apiKey    string
	apiSecret string

	groups     []*group
	connectors map[string]*Connector
	schemas    map[string]map[string]*schema
	failures   map[string][]failure
	requests   []string

	cancelStatus int
}

// New creates an empty twin accepting the given credentials.
func New(accountID, apiKey, apiSecret string) *Twin {
	return &Twin{
		accountID:  accountID,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		connectors: make(map[string]*Connector),
		schemas:    make(map[string]map[string]*schema),
		failures:   make(map[string][]failure),
	}
}

// Server starts an httptest server for the twin. The caller must Close it.
func (tw *Twin) Server() *httptest.Server {
	return httptest.NewServer(tw.Handler())
}

// AddGroup registers a destination group and its warehouse database.
func (tw *Twin) AddGroup(id, name, database string) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.groups = append(tw.groups, &group{id: id, name: name, database: database, service: "snowflake"})
}

// AddConnector registers a connector. Zero fields get usable defaults.
func (tw *Twin) AddConnector(c Connector) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if c.SetupState == "" {
		c.SetupState = "connected"
	}
	if c.SyncState == "" {
		c.SyncState = "scheduled"
	}
	if c.Outcome == "" {
		c.Outcome = OutcomeSuccess
	}
	if c.Schema == "" {
		c.Schema = c.ID
	}
	conn := c
	tw.connectors[c.ID] = &conn
	if tw.schemas[c.ID] == nil {
		tw.schemas[c.ID] = make(map[string]*schema)
	}
}

// AddTable registers an enabled table. The destination schema defaults to
// the source schema name.
func (tw *Twin) AddTable(connectorID, schemaName, tableName string, columns ...Column) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	schemas := tw.schemas[connectorID]
	if schemas == nil {
		schemas = make(map[string]*schema)
		tw.schemas[connectorID] = schemas
	}
	s := schemas[schemaName]
	if s == nil {
		s = &schema{nameInDest: schemaName, enabled: true, tables: make(map[string]*table)}
		schemas[schemaName] = s
	}
	s.tables[tableName] = &table{nameInDest: tableName, enabled: true, columns: columns}
}

// DisableTable excludes a table from syncing.
func (tw *Twin) DisableTable(connectorID, schemaName, tableName string) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if s := tw.schemas[connectorID][schemaName]; s != nil {
		if t := s.tables[tableName]; t != nil {
			t.enabled = false
		}
	}
}

// RenameSchema sets the destination name of a source schema.
func (tw *Twin) RenameSchema(connectorID, schemaName, nameInDest string) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if s := tw.schemas[connectorID][schemaName]; s != nil {
		s.nameInDest = nameInDest
	}
}

// FailNext makes the next requests to path fail with the given statuses, in order.
func (tw *Twin) FailNext(path string, statuses ...int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	for _, st := range statuses {
		tw.failures[path] = append(tw.failures[path], failure{status: st})
	}
}

// RateLimitNext makes the next request to path answer 429 with Retry-After.
func (tw *Twin) RateLimitNext(path string, retryAfterSeconds int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.failures[path] = append(tw.failures[path], failure{
		status:     http.StatusTooManyRequests,
		retryAfter: strconv.Itoa(retryAfterSeconds),
	})
}

// SetCancelStatus makes every cancel request answer with status.
func (tw *Twin) SetCancelStatus(status int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.cancelStatus = status
}

// Requests returns "METHOD /path" for every request received.
func (tw *Twin) Requests() []string {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return append([]string(nil), tw.requests...)
}

// Count returns how many times "METHOD /path" was requested.
func (tw *Twin) Count(method, path string) int {
	want := method + " " + path
	n := 0
	for _, r := range tw.Requests() {
		if r == want {
			n++
		}
	}
	return n
}

// Syncs returns how many times a connector's sync was triggered.
func (tw *Twin) Syncs(connectorID string) int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if c := tw.connectors[connectorID]; c != nil {
		return c.syncs
	}
	return 0
}

// Cancels returns how many cancel requests a connector received.
func (tw *Twin) Cancels(connectorID string) int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if c := tw.connectors[connectorID]; c != nil {
		return c.cancels
	}
	return 0
}

// Handler returns the chi router serving the API.
func (tw *Twin) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(tw.record, tw.authenticate, tw.injectFailures)

	r.Get("/v1/account/info", tw.handleAccountInfo)
	r.Get("/v1/groups", tw.handleListGroups)
	r.Get("/v1/groups/{groupID}/connectors", tw.handleListConnectors)
	r.Get("/v1/connectors/{connectorID}", tw.handleGetConnector)
	r.Get("/v1/connectors/{connectorID}/schemas", tw.handleGetSchemas)
	r.Post("/v1/connectors/{connectorID}/sync", tw.handleSync)
	r.Post("/v1/connectors/{connectorID}/cancel", tw.handleCancel)
	r.Get("/v1/destinations/{groupID}", tw.handleGetDestination)

	return r
}

func (tw *Twin) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw.mu.Lock()
		tw.requests = append(tw.requests, r.Method+" "+r.URL.Path)
		tw.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (tw *Twin) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, secret, ok := r.BasicAuth()
		if !ok || key != tw.apiKey || secret != tw.apiSecret {
			writeError(w, http.StatusUnauthorized, "invalid API key or secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (tw *Twin) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw.mu.Lock()
		queue := tw.failures[r.URL.Path]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			tw.failures[r.URL.Path] = queue[1:]
		}
		tw.mu.Unlock()

		if f != nil {
			if f.retryAfter != "" {
				w.Header().Set("Retry-After", f.retryAfter)
			}
			writeError(w, f.status, http.StatusText(f.status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (tw *Twin) handleAccountInfo(w http.ResponseWriter, _ *http.Request) {
	writeData(w, map[string]string{
		"account_id":   tw.accountID,
		"account_name": "Twin Account",
		"user_id":      "user-twin",
	})
}

func (tw *Twin) handleListGroups(w http.ResponseWriter, r *http.Request) {
	tw.mu.Lock()
	items := make([]map[string]string, 0, len(tw.groups))
	for _, g := range tw.groups {
		items = append(items, map[string]string{"id": g.id, "name": g.name})
	}
	tw.mu.Unlock()

	writePage(w, r, items)
}

func (tw *Twin) handleListConnectors(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	tw.mu.Lock()
	var items []map[string]any
	for _, id := range tw.sortedConnectorIDs() {
		c := tw.connectors[id]
		if c.GroupID == groupID {
			items = append(items, c.toJSON())
		}
	}
	tw.mu.Unlock()

	writePage(w, r, items)
}

func (tw *Twin) handleGetConnector(w http.ResponseWriter, r *http.Request) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	c := tw.connectors[chi.URLParam(r, "connectorID")]
	if c == nil {
		writeError(w, http.StatusNotFound, "connector not found")
		return
	}

	if c.SyncState == "syncing" && c.Outcome != OutcomeNever {
		if c.pending > 0 {
			c.pending--
		} else {
			now := time.Now().UTC()
			if c.Outcome == OutcomeFailure {
				c.FailedAt = now
			} else {
				c.SucceededAt = now
			}
			c.SyncState = "scheduled"
		}
	}

	writeData(w, c.toJSON())
}

func (tw *Twin) handleGetSchemas(w http.ResponseWriter, r *http.Request) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	id := chi.URLParam(r, "connectorID")
	if tw.connectors[id] == nil {
		writeError(w, http.StatusNotFound, "connector not found")
		return
	}

	schemas := make(map[string]any)
	for name, s := range tw.schemas[id] {
		tables := make(map[string]any)
		for tname, t := range s.tables {
			cols := make(map[string]any)
			for _, col := range t.columns {
				cols[col.Name] = map[string]any{
					"name_in_destination": col.Name,
					"enabled":             !col.Disabled,
					"is_primary_key":      col.PrimaryKey,
				}
			}
			tables[tname] = map[string]any{
				"name_in_destination": t.nameInDest,
				"enabled":             t.enabled,
				"columns":             cols,
			}
		}
		schemas[name] = map[string]any{
			"name_in_destination": s.nameInDest,
			"enabled":             s.enabled,
			"tables":              tables,
		}
	}

	writeData(w, map[string]any{"schemas": schemas})
}

func (tw *Twin) handleSync(w http.ResponseWriter, r *http.Request) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	c := tw.connectors[chi.URLParam(r, "connectorID")]
	if c == nil {
		writeError(w, http.StatusNotFound, "connector not found")
		return
	}
	if c.Paused {
		writeError(w, http.StatusConflict, "connector is paused")
		return
	}

	c.syncs++
	c.SyncState = "syncing"
	c.pending = c.PollsToFinish
	writeData(w, map[string]string{"message": "Sync has been successfully triggered"})
}

func (tw *Twin) handleCancel(w http.ResponseWriter, r *http.Request) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	c := tw.connectors[chi.URLParam(r, "connectorID")]
	if c == nil {
		writeError(w, http.StatusNotFound, "connector not found")
		return
	}
	c.cancels++
	if tw.cancelStatus != 0 && tw.cancelStatus != http.StatusOK {
		writeError(w, tw.cancelStatus, http.StatusText(tw.cancelStatus))
		return
	}
	c.SyncState = "scheduled"
	writeData(w, map[string]string{"message": "Sync has been cancelled"})
}

func (tw *Twin) handleGetDestination(w http.ResponseWriter, r *http.Request) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	id := chi.URLParam(r, "groupID")
	for _, g := range tw.groups {
		if g.id == id {
			writeData(w, map[string]any{
				"id":       g.id,
				"group_id": g.id,
				"service":  g.service,
				"config":   map[string]string{"database": g.database},
			})
			return
		}
	}
	writeError(w, http.StatusNotFound, "destination not found")
}

// sortedConnectorIDs returns IDs in reverse order so clients cannot rely
// on the twin's ordering. Caller must hold the lock.
func (tw *Twin) sortedConnectorIDs() []string {
	ids := make([]string, 0, len(tw.connectors))
	for id := range tw.connectors {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids
}

func (c *Connector) toJSON() map[string]any {
	out := map[string]any{
		"id":             c.ID,
		"group_id":       c.GroupID,
		"service":        c.Service,
		"schema":         c.Schema,
		"paused":         c.Paused,
		"sync_frequency": 360,
		"succeeded_at":   nullableTime(c.SucceededAt),
		"failed_at":      nullableTime(c.FailedAt),
		"status": map[string]string{
			"setup_state": c.SetupState,
			"sync_state":  c.SyncState,
		},
	}
	if c.RowsSynced != nil {
		out["rows_synced"] = *c.RowsSynced
	}
	return out
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := min(offset+limit, len(items))

	data := map[string]any{"items": items[offset:end]}
	if end < len(items) {
		data["next_cursor"] = strconv.Itoa(end)
	}
	writeData(w, data)
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": "Success", "data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    fmt.Sprintf("%d", status),
		"message": message,
	})
}
