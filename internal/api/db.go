package api

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-intel/internal/store"
)

// DBHandler serves the DuckDB snapshot archive.
type DBHandler struct {
	db      *sql.DB
	archive *store.Archive
}

// NewDBHandler creates a database handler. Either argument may be nil.
func NewDBHandler(db *sql.DB, archive *store.Archive) *DBHandler {
	return &DBHandler{db: db, archive: archive}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("archive")
	huma.Get(api, "/api/v1/tables", h.ListTables, tags)
	huma.Post(api, "/api/v1/query", h.Query, tags)
	huma.Get(api, "/api/v1/archive", h.ListSnapshots, tags)
	huma.Get(api, "/api/v1/archive/counts", h.SnapshotCounts, tags)
}

type TablesBody struct {
	Tables []string `json:"tables" doc:"List of table names"`
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*struct{ Body TablesBody }, error) {
	if h.db == nil {
		return nil, unavailable("database")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list tables", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}
	return &struct{ Body TablesBody }{Body: TablesBody{Tables: tables}}, nil
}

type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" doc:"SQL query to execute" example:"SELECT kind, count(*) FROM snapshots GROUP BY kind"`
	}
}

type QueryBody struct {
	Columns []string         `json:"columns" doc:"Column names"`
	Rows    []map[string]any `json:"rows" doc:"Query results"`
	Count   int              `json:"count" doc:"Number of rows returned"`
}

// Query executes a SQL query against DuckDB.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*struct{ Body QueryBody }, error) {
	if h.db == nil {
		return nil, unavailable("database")
	}

	rows, err := h.db.QueryContext(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get columns", err)
	}

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			continue
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	return &struct{ Body QueryBody }{Body: QueryBody{
		Columns: columns,
		Rows:    results,
		Count:   len(results),
	}}, nil
}

type SnapshotsInput struct {
	Kind  string `query:"kind" doc:"Dataset kind; empty lists every kind" example:"earthquakes"`
	Limit int    `query:"limit" minimum:"1" maximum:"500" default:"20"`
}

type SnapshotsBody struct {
	Snapshots []store.Record `json:"snapshots"`
}

// ListSnapshots returns the most recent archived datasets.
func (h *DBHandler) ListSnapshots(ctx context.Context, input *SnapshotsInput) (*struct{ Body SnapshotsBody }, error) {
	if h.archive == nil {
		return nil, unavailable("archive")
	}
	recs, err := h.archive.Recent(ctx, input.Kind, input.Limit)
	if err != nil {
		return nil, humaError(err)
	}
	if recs == nil {
		recs = []store.Record{}
	}
	return &struct{ Body SnapshotsBody }{Body: SnapshotsBody{Snapshots: recs}}, nil
}

type CountsBody struct {
	Counts  map[string]int `json:"counts" doc:"Archived snapshots per kind"`
	Dropped int64          `json:"dropped" doc:"Snapshots dropped because the writer was saturated"`
}

func (h *DBHandler) SnapshotCounts(ctx context.Context, input *struct{}) (*struct{ Body CountsBody }, error) {
	if h.archive == nil {
		return nil, unavailable("archive")
	}
	counts, err := h.archive.Counts(ctx)
	if err != nil {
		return nil, humaError(err)
	}
	return &struct{ Body CountsBody }{Body: CountsBody{Counts: counts, Dropped: h.archive.Dropped()}}, nil
}
