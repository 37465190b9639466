package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/map>; rel="map"`,
		`</api/v1/feeds>; rel="feeds"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/map>; rel="map"`,
	},
	"/api/v1/map": {
		`</api/v1/map/snapshot>; rel="snapshot"`,
		`</api/v1/map/markers>; rel="markers"`,
		`</api/v1/map/clusters>; rel="clusters"`,
		`</api/v1/map/frame>; rel="frame"`,
	},
	"/api/v1/map/snapshot": {
		`</api/v1/map>; rel="up"`,
		`</api/v1/archive>; rel="archive"`,
	},
	"/api/v1/map/markers": {
		`</api/v1/map>; rel="up"`,
	},
	"/api/v1/map/markers/{id}/click": {
		`</api/v1/map/markers>; rel="collection"`,
		`</api/v1/map/popup>; rel="close"`,
	},
	"/api/v1/feeds": {
		`</api/v1/feeds/refresh>; rel="refresh"`,
		`</api/v1/archive>; rel="archive"`,
	},
	"/api/v1/archive": {
		`</api/v1/archive/counts>; rel="counts"`,
		`</api/v1/tables>; rel="tables"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="query"`,
	},
	"/api/v1/banner": {
		`</api/v1/banner/dismiss>; rel="dismiss"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		return v, nil
	}
}
