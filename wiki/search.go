package wiki

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultSearchResults is the result count used when none is requested
	DefaultSearchResults = 10

	maxSearchPull     = 500
	maxOpenSearchPull = 100

	// DefaultGeoRadius is the search radius in meters
	DefaultGeoRadius = 1000
)

// SearchResults is the outcome of a full-text search
type SearchResults struct {
	Titles     []string
	Suggestion string // spelling suggestion, only requested when asked for
}

type searchArgs struct {
	query      string
	results    int
	suggestion bool
}

// Search runs a full-text search. results caps the titles returned (at most
// 500, zero means DefaultSearchResults); suggestion also asks for a spelling suggestion.
func (c *Client) Search(ctx context.Context, query string, results int, suggestion bool) (*SearchResults, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Field: "query", Message: "query must be specified"}
	}
	if results <= 0 {
		results = DefaultSearchResults
	}
	args := searchArgs{query: query, results: min(results, maxSearchPull), suggestion: suggestion}

	return memoize(c, "search", args, func() (*SearchResults, error) {
		params := url.Values{}
		params.Set("list", "search")
		params.Set("srprop", "")
		params.Set("srlimit", strconv.Itoa(args.results))
		params.Set("srsearch", args.query)
		if args.suggestion {
			params.Set("srinfo", "suggestion")
		}

		resp, err := c.request(ctx, params)
		if err != nil {
			return nil, err
		}
		query := getMap(resp, "query")

		out := &SearchResults{Titles: []string{}}
		for _, rec := range getSlice(query, "search") {
			item, _ := rec.(map[string]interface{})
			if t := getString(item, "title"); t != "" {
				out.Titles = append(out.Titles, t)
			}
		}
		if args.suggestion {
			out.Suggestion = getString(getMap(query, "searchinfo"), "suggestion")
		}
		return out, nil
	})
}

// Suggest returns the best matching title for query, or "" when nothing matches
func (c *Client) Suggest(ctx context.Context, query string) (string, error) {
	res, err := c.Search(ctx, query, 1, true)
	if err != nil {
		return "", err
	}
	if len(res.Titles) > 0 {
		return res.Titles[0], nil
	}
	return res.Suggestion, nil
}

// OpenSearchResult is one completion returned by OpenSearch
type OpenSearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type openSearchArgs struct {
	query    string
	results  int
	redirect bool
}

// OpenSearch returns title completions for query. results is capped at 100;
// redirect resolves redirecting titles to their targets.
func (c *Client) OpenSearch(ctx context.Context, query string, results int, redirect bool) ([]OpenSearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Field: "query", Message: "query must be specified"}
	}
	if results <= 0 {
		results = DefaultSearchResults
	}
	args := openSearchArgs{query: query, results: min(results, maxOpenSearchPull), redirect: redirect}

	return memoize(c, "opensearch", args, func() ([]OpenSearchResult, error) {
		params := url.Values{}
		params.Set("action", "opensearch")
		params.Set("search", args.query)
		params.Set("limit", strconv.Itoa(args.results))
		params.Set("namespace", "")
		if args.redirect {
			params.Set("redirects", "resolve")
		} else {
			params.Set("redirects", "return")
		}

		resp, err := c.requestArray(ctx, params)
		if err != nil {
			return nil, err
		}
		out := []OpenSearchResult{}
		if len(resp) < 4 {
			return out, nil
		}
		titles, _ := resp[1].([]interface{})
		descriptions, _ := resp[2].([]interface{})
		urls, _ := resp[3].([]interface{})
		for i, t := range titles {
			r := OpenSearchResult{Title: formatValue(t)}
			if i < len(descriptions) {
				r.Description = formatValue(descriptions[i])
			}
			if i < len(urls) {
				r.URL = formatValue(urls[i])
			}
			out = append(out, r)
		}
		return out, nil
	})
}

type prefixSearchArgs struct {
	prefix  string
	results int
}

// PrefixSearch returns article titles starting with prefix. results outside
// 1..500 request the wiki's maximum.
func (c *Client) PrefixSearch(ctx context.Context, prefix string, results int) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, &ValidationError{Field: "prefix", Message: "prefix must be specified"}
	}
	args := prefixSearchArgs{prefix: prefix, results: results}

	return memoize(c, "prefixsearch", args, func() ([]string, error) {
		params := url.Values{}
		params.Set("list", "prefixsearch")
		params.Set("pssearch", args.prefix)
		params.Set("psnamespace", "0")
		params.Set("psoffset", "0")
		if args.results < 1 || args.results > maxSearchPull {
			params.Set("pslimit", "max")
		} else {
			params.Set("pslimit", strconv.Itoa(args.results))
		}

		resp, err := c.request(ctx, params)
		if err != nil {
			return nil, err
		}
		return listTitles(getMap(resp, "query"), "prefixsearch"), nil
	})
}

// GeoSearchOptions selects the area of a geographic search. When Title is set
// the search is centered on that page's coordinates instead of Latitude/Longitude.
type GeoSearchOptions struct {
	Latitude    float64
	Longitude   float64
	Title       string
	Radius      int // meters; zero means DefaultGeoRadius
	Results     int // zero means DefaultSearchResults
	AutoSuggest bool
}

// GeoSearch returns the titles of pages near a point or page
func (c *Client) GeoSearch(ctx context.Context, opts GeoSearchOptions) ([]string, error) {
	if opts.Radius <= 0 {
		opts.Radius = DefaultGeoRadius
	}
	if opts.Results <= 0 {
		opts.Results = DefaultSearchResults
	}
	if opts.Title != "" {
		// coordinates are ignored for a page search and must not split the memo key
		opts.Latitude, opts.Longitude = 0, 0
	} else {
		if err := checkCoordinate("latitude", opts.Latitude, 90); err != nil {
			return nil, err
		}
		if err := checkCoordinate("longitude", opts.Longitude, 180); err != nil {
			return nil, err
		}
	}

	return memoize(c, "geosearch", opts, func() ([]string, error) {
		params := url.Values{}
		params.Set("list", "geosearch")
		params.Set("gsradius", strconv.Itoa(opts.Radius))
		params.Set("gslimit", strconv.Itoa(opts.Results))

		if opts.Title != "" {
			title := opts.Title
			if opts.AutoSuggest {
				suggested, err := c.Suggest(ctx, title)
				if err != nil {
					return nil, err
				}
				if suggested != "" {
					title = suggested
				}
			}
			params.Set("gspage", title)
		} else {
			params.Set("gscoord", strconv.FormatFloat(opts.Latitude, 'f', -1, 64)+"|"+strconv.FormatFloat(opts.Longitude, 'f', -1, 64))
		}

		resp, err := c.request(ctx, params)
		if err != nil {
			return nil, err
		}
		return listTitles(getMap(resp, "query"), "geosearch"), nil
	})
}

func checkCoordinate(field string, v, bound float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < -bound || v > bound {
		return &ValidationError{
			Field:   field,
			Value:   strconv.FormatFloat(v, 'f', -1, 64),
			Message: "must be a decimal degree between -" + strconv.Itoa(int(bound)) + " and " + strconv.Itoa(int(bound)),
		}
	}
	return nil
}

// Random returns the titles of randomly chosen articles. It is never memoized.
func (c *Client) Random(ctx context.Context, pages int) ([]string, error) {
	if pages < 1 {
		return nil, &ValidationError{
			Field:   "pages",
			Value:   strconv.Itoa(pages),
			Message: "number of pages must be greater than 0",
		}
	}

	params := url.Values{}
	params.Set("list", "random")
	params.Set("rnnamespace", "0")
	params.Set("rnlimit", strconv.Itoa(pages))

	resp, err := c.request(ctx, params)
	if err != nil {
		return nil, err
	}
	return listTitles(getMap(resp, "query"), "random"), nil
}

// SummaryOptions configures Client.Summary
type SummaryOptions struct {
	Sentences   int
	Chars       int
	AutoSuggest bool
	Redirect    bool
}

// DefaultSummaryOptions suggests titles and follows redirects
func DefaultSummaryOptions() SummaryOptions {
	return SummaryOptions{AutoSuggest: true, Redirect: true}
}

type summaryArgs struct {
	title string
	SummaryOptions
}

// Summary resolves title and returns its summary as Page.Summarize does
func (c *Client) Summary(ctx context.Context, title string, opts SummaryOptions) (string, error) {
	args := summaryArgs{title: title, SummaryOptions: opts}
	return memoize(c, "summary", args, func() (string, error) {
		page, err := c.Page(ctx, title, WithAutoSuggest(opts.AutoSuggest), WithRedirect(opts.Redirect))
		if err != nil {
			return "", err
		}
		return page.Summarize(ctx, opts.Sentences, opts.Chars)
	})
}

// listTitles projects query[key] onto record titles
func listTitles(query map[string]interface{}, key string) []string {
	titles := []string{}
	for _, rec := range getSlice(query, key) {
		item, _ := rec.(map[string]interface{})
		if t, ok := titleOf(item); ok {
			titles = append(titles, t)
		}
	}
	return titles
}
