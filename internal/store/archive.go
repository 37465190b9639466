package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-intel/internal/errors"
	"github.com/joeblew999/plat-intel/internal/layers"
	"github.com/joeblew999/plat-intel/internal/logging"
)

// DefaultArchiveBuffer is the number of snapshots queued for writing.
const DefaultArchiveBuffer = 64

// Record is one archived snapshot.
type Record struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	ItemCount  int             `json:"itemCount"`
	RecordedAt time.Time       `json:"recordedAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// ArchiveOptions configures an Archive.
type ArchiveOptions struct {
	Buffer int
	Logger *zerolog.Logger
	Now    func() time.Time
}

type pending struct {
	kind  string
	items any
	at    time.Time
}

// Archive writes replaced snapshots to the snapshots table off the caller's
// goroutine. Snapshots arriving while the queue is full are dropped.
type Archive struct {
	db  *sql.DB
	log *zerolog.Logger
	now func() time.Time
	ch  chan pending
	wg  sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewArchive starts an archive writer over db.
func NewArchive(db *sql.DB, opts ArchiveOptions) *Archive {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultArchiveBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logging.Component("archive")
	}
	a := &Archive{db: db, log: log, now: opts.Now, ch: make(chan pending, opts.Buffer)}
	a.wg.Add(1)
	go a.run()
	return a
}

// Record queues a snapshot. It never blocks.
func (a *Archive) Record(kind string, items any) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.ch <- pending{kind: kind, items: items, at: a.now().UTC()}:
	default:
		a.dropped.Add(1)
		a.log.Warn().Str("kind", kind).Msg("archive queue full, snapshot dropped")
	}
}

// Dropped returns the number of snapshots dropped on a full queue.
func (a *Archive) Dropped() int64 {
	return a.dropped.Load()
}

// Close drains the queue and stops the writer.
func (a *Archive) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
	return nil
}

func (a *Archive) run() {
	defer a.wg.Done()
	for p := range a.ch {
		if err := a.write(context.Background(), p); err != nil {
			a.log.Warn().Err(err).Str("kind", p.kind).Msg("archive write failed")
		}
	}
}

func (a *Archive) write(ctx context.Context, p pending) error {
	payload, err := json.Marshal(p.items)
	if err != nil {
		return errors.WrapResource("encode", "snapshot", p.kind, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, kind, item_count, recorded_at, payload) VALUES (?, ?, ?, ?, ?)`,
		id.String(), p.kind, layers.DataCount(p.items), p.at, string(payload))
	return errors.WrapResource("insert", "snapshot", p.kind, err)
}

// Recent returns the newest snapshots of kind, newest first. An empty kind
// matches every kind.
func (a *Archive) Recent(ctx context.Context, kind string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, kind, item_count, recorded_at, CAST(payload AS VARCHAR)
		 FROM snapshots WHERE ? = '' OR kind = ?
		 ORDER BY recorded_at DESC, id DESC LIMIT ?`, kind, kind, limit)
	if err != nil {
		return nil, errors.WrapResource("query", "snapshots", kind, err)
	}
	defer func() { _ = rows.Close() }()

	out := []Record{}
	for rows.Next() {
		var r Record
		var payload sql.NullString
		if err := rows.Scan(&r.ID, &r.Kind, &r.ItemCount, &r.RecordedAt, &payload); err != nil {
			return nil, errors.WrapResource("scan", "snapshots", kind, err)
		}
		if payload.Valid {
			r.Payload = json.RawMessage(payload.String)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts returns the number of archived snapshots per kind.
func (a *Archive) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM snapshots GROUP BY kind`)
	if err != nil {
		return nil, errors.WrapResource("query", "snapshots", "", err)
	}
	defer func() { _ = rows.Close() }()
	out := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}
