package wiki

import (
	"context"
	"iter"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"

	"github.com/olgasafonova/mediawiki-mcp-server/metrics"
)

// resultShape says where a continued query's records live in each response.
// It is fixed once from the query parameters.
type resultShape int

const (
	// shapePerPage: query.pages[<pageid>][<prop>] is a list for the one page queried
	shapePerPage resultShape = iota
	// shapeList: query[<key>] is a list of records
	shapeList
	// shapeGenerator: query.pages is a map of records keyed by synthetic ids
	shapeGenerator
)

func (s resultShape) String() string {
	switch s {
	case shapePerPage:
		return "per_page"
	case shapeList:
		return "list"
	case shapeGenerator:
		return "generator"
	default:
		return "unknown"
	}
}

// continuedQuery describes one query to be driven across continuation cursors
type continuedQuery struct {
	params url.Values
	key    string
	shape  resultShape

	prop   string // property name for shapePerPage
	pageID int    // page whose property is read for shapePerPage

	// legacy also accepts query-continue[key] cursors
	legacy bool

	// limit stops after this many records; zero means no limit. limitParam is
	// lowered on later requests so the last one asks only for what remains.
	limit      int
	limitParam string
}

// newContinuedQuery classifies the query once from its parameters
func newContinuedQuery(params url.Values, key string) *continuedQuery {
	q := &continuedQuery{params: params, key: key}
	switch {
	case params.Get("generator") != "":
		q.shape = shapeGenerator
	case key != "pages":
		q.shape = shapeList
	default:
		q.shape = shapePerPage
		q.prop = params.Get("prop")
	}
	return q
}

// forPage scopes a per-page query to one page id
func (q *continuedQuery) forPage(pageID int) *continuedQuery {
	q.pageID = pageID
	q.params.Set("pageids", strconv.Itoa(pageID))
	return q
}

// withLegacyContinue accepts query-continue cursors for the result key
func (q *continuedQuery) withLegacyContinue() *continuedQuery {
	q.legacy = true
	return q
}

// withLimit caps the number of records yielded
func (q *continuedQuery) withLimit(n int, param string) *continuedQuery {
	q.limit = n
	q.limitParam = param
	return q
}

// records extracts this response's records according to the query shape
func (q *continuedQuery) records(resp map[string]interface{}) []interface{} {
	query := getMap(resp, "query")
	switch q.shape {
	case shapeGenerator:
		pages := getMap(query, q.key)
		out := make([]interface{}, 0, len(pages))
		for _, k := range slices.Sorted(maps.Keys(pages)) {
			out = append(out, pages[k])
		}
		return out
	case shapeList:
		return getSlice(query, q.key)
	default:
		pages := getMap(query, q.key)
		page := getMap(pages, strconv.Itoa(q.pageID))
		if page == nil && len(pages) == 1 {
			for _, v := range pages {
				page, _ = v.(map[string]interface{})
			}
		}
		return getSlice(page, q.prop)
	}
}

// cursor returns the continuation cursor of a response, or nil when there is none
func (q *continuedQuery) cursor(resp map[string]interface{}) map[string]interface{} {
	if q.legacy {
		if cont := getMap(getMap(resp, "query-continue"), q.key); len(cont) > 0 {
			return cont
		}
	}
	if cont := getMap(resp, "continue"); len(cont) > 0 {
		return cont
	}
	return nil
}

// paginate drives q to exhaustion, yielding each record. Iteration stops when a
// response carries no cursor or repeats the cursor just sent. Every call issues
// fresh requests.
func (c *Client) paginate(ctx context.Context, q *continuedQuery) iter.Seq2[map[string]interface{}, error] {
	return func(yield func(map[string]interface{}, error) bool) {
		var last map[string]interface{}
		yielded := 0

		for {
			// each request is the initial parameters plus only the newest cursor
			params := cloneValues(q.params)
			for k, v := range last {
				params.Set(k, formatValue(v))
			}
			if q.limit > 0 && q.limitParam != "" {
				params.Set(q.limitParam, strconv.Itoa(q.limit-yielded))
			}

			metrics.ContinuationPages.WithLabelValues(q.shape.String()).Inc()
			resp, err := c.request(ctx, params)
			if err != nil {
				yield(nil, err)
				return
			}

			for _, rec := range q.records(resp) {
				item, ok := rec.(map[string]interface{})
				if !ok {
					continue
				}
				if !yield(item, nil) {
					return
				}
				yielded++
				if q.limit > 0 && yielded >= q.limit {
					return
				}
			}

			cont := q.cursor(resp)
			if cont == nil || reflect.DeepEqual(cont, last) {
				return
			}
			last = cont
		}
	}
}

// collect drains a continued query into a slice, projecting each record with fn.
// Records for which fn reports false are skipped.
func collect[T any](seq iter.Seq2[map[string]interface{}, error], fn func(map[string]interface{}) (T, bool)) ([]T, error) {
	out := []T{}
	for item, err := range seq {
		if err != nil {
			return nil, err
		}
		if v, ok := fn(item); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// titleOf projects a record onto its title
func titleOf(item map[string]interface{}) (string, bool) {
	t := getString(item, "title")
	return t, t != ""
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = slices.Clone(vals)
	}
	return out
}
