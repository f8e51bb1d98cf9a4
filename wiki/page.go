package wiki

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/olgasafonova/mediawiki-mcp-server/metrics"
	"github.com/olgasafonova/mediawiki-mcp-server/tracing"
)

// Page is a resolved wiki page. Title, PageID and URL are fixed at resolution;
// every other property is fetched on first access and kept for the page's lifetime.
type Page struct {
	Title         string
	PageID        int
	URL           string
	OriginalTitle string // the title as requested, before suggestion or redirects

	client *Client

	content     lazy[pageContent]
	html        lazy[string]
	wikitext    lazy[string]
	images      lazy[[]string]
	references  lazy[[]string]
	categories  lazy[[]string]
	links       lazy[[]string]
	redirects   lazy[[]string]
	backlinks   lazy[[]string]
	langlinks   lazy[map[string]string]
	summary     lazy[string]
	coordinates lazy[*Coordinates]
	sections    lazy[sectionOutline]
	hatnotes    lazy[[]string]
	logos       lazy[[]string]
}

// lazy holds a value computed at most once; failures are not kept
type lazy[T any] struct {
	value T
	done  bool
}

func (l *lazy[T]) get(compute func() (T, error)) (T, error) {
	if l.done {
		return l.value, nil
	}
	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	l.value, l.done = v, true
	return v, nil
}

type pageContent struct {
	text       string
	revisionID int
	parentID   int
}

type sectionOutline struct {
	titles []string
	toc    *TableOfContents
}

// PageOption configures page resolution
type PageOption func(*pageOptions)

type pageOptions struct {
	autoSuggest bool
	redirect    bool
	preload     bool
}

func defaultPageOptions() pageOptions {
	return pageOptions{autoSuggest: true, redirect: true}
}

// WithAutoSuggest controls whether the title is first passed through search suggestions (default true)
func WithAutoSuggest(enabled bool) PageOption {
	return func(o *pageOptions) {
		o.autoSuggest = enabled
	}
}

// WithRedirect controls whether redirects are followed (default true)
func WithRedirect(follow bool) PageOption {
	return func(o *pageOptions) {
		o.redirect = follow
	}
}

// WithPreload fetches every lazy property during resolution
func WithPreload(preload bool) PageOption {
	return func(o *pageOptions) {
		o.preload = preload
	}
}

// pageRef identifies the page being resolved by exactly one of title or id
type pageRef struct {
	title  string
	pageID int
}

func (r pageRef) String() string {
	if r.title != "" {
		return r.title
	}
	return strconv.Itoa(r.pageID)
}

// Page resolves a title into a canonical page
func (c *Client) Page(ctx context.Context, title string, opts ...PageOption) (*Page, error) {
	o := defaultPageOptions()
	for _, opt := range opts {
		opt(&o)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title must be specified"}
	}
	original := title

	if o.autoSuggest {
		res, err := c.Search(ctx, title, 1, true)
		if err != nil {
			return nil, err
		}
		switch {
		case res.Suggestion != "":
			title = res.Suggestion
		case len(res.Titles) > 0:
			title = res.Titles[0]
		default:
			return nil, &PageNotFoundError{Title: title}
		}
	}

	return c.loadPage(ctx, pageRef{title: title}, original, o)
}

// PageByID resolves a numeric page id into a canonical page
func (c *Client) PageByID(ctx context.Context, pageID int, opts ...PageOption) (*Page, error) {
	o := defaultPageOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if pageID <= 0 {
		return nil, &ValidationError{Field: "pageid", Value: strconv.Itoa(pageID), Message: "page id must be positive"}
	}
	return c.loadPage(ctx, pageRef{pageID: pageID}, "", o)
}

func (c *Client) loadPage(ctx context.Context, ref pageRef, original string, o pageOptions) (*Page, error) {
	page, err := c.resolve(ctx, ref, o.redirect)
	if err != nil {
		return nil, err
	}
	page.OriginalTitle = original
	if o.preload {
		if err := page.Preload(ctx); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// resolution outcomes of a single metadata query
type resolveState int

const (
	stateResolved resolveState = iota
	stateMissing
	stateRedirecting
	stateDisambiguating
)

// classify inspects the single page record of a metadata query. Missing takes
// precedence over redirects, which take precedence over disambiguation.
func classify(query map[string]interface{}) (resolveState, map[string]interface{}) {
	var record map[string]interface{}
	for _, v := range getMap(query, "pages") {
		record, _ = v.(map[string]interface{})
		break
	}
	switch {
	case record == nil || hasKey(record, "missing") || hasKey(record, "invalid"):
		return stateMissing, record
	case len(getSlice(query, "redirects")) > 0:
		return stateRedirecting, record
	case hasKey(getMap(record, "pageprops"), "disambiguation"):
		return stateDisambiguating, record
	default:
		return stateResolved, record
	}
}

// resolve runs the resolution state machine, following redirects as an explicit
// loop bounded by Config.MaxRedirects.
func (c *Client) resolve(ctx context.Context, ref pageRef, followRedirect bool) (page *Page, err error) {
	ctx, span := tracing.StartSpan(ctx, "wiki.resolve")
	hops := 0
	defer func() {
		if page != nil {
			tracing.AddPageAttributes(span, page.Title, page.PageID, hops)
		}
		tracing.EndSpan(span, err)
	}()

	chain := []string{ref.String()}
	for {
		params := url.Values{}
		params.Set("prop", "info|pageprops")
		params.Set("inprop", "url")
		params.Set("ppprop", "disambiguation")
		params.Set("redirects", "")
		if ref.title != "" {
			params.Set("titles", ref.title)
		} else {
			params.Set("pageids", strconv.Itoa(ref.pageID))
		}

		resp, err := c.request(ctx, params)
		if err != nil {
			return nil, err
		}
		query := getMap(resp, "query")

		state, record := classify(query)
		switch state {
		case stateMissing:
			return nil, &PageNotFoundError{Title: ref.title, PageID: ref.pageID}

		case stateRedirecting:
			if !followRedirect {
				from := ref.title
				if from == "" {
					r, _ := getSlice(query, "redirects")[0].(map[string]interface{})
					from = getString(r, "from")
				}
				return nil, &RedirectError{Title: from}
			}
			from, target, err := redirectTarget(query, ref)
			if err != nil {
				return nil, err
			}
			hops++
			chain = append(chain, target)
			if hops > c.config.MaxRedirects {
				return nil, &RedirectLoopError{Title: chain[0], Chain: chain}
			}
			metrics.RedirectHops.Inc()
			c.logger.Debug("Following redirect", "from", from, "to", target, "hop", hops)
			ref = pageRef{title: target}

		case stateDisambiguating:
			return nil, c.disambiguation(ctx, record, ref)

		default:
			return &Page{
				Title:  getString(record, "title"),
				PageID: getInt(record, "pageid"),
				URL:    getString(record, "fullurl"),
				client: c,
			}, nil
		}
	}
}

// redirectTarget reads the first redirect hop and checks it against the request.
// When the title was normalized, the normalization must start from the requested
// title and the redirect from the normalized one. A request by id takes its
// title from the redirect record.
func redirectTarget(query map[string]interface{}, ref pageRef) (from, to string, err error) {
	redirect, _ := getSlice(query, "redirects")[0].(map[string]interface{})

	fromTitle := ref.title
	if normalized := getSlice(query, "normalized"); len(normalized) > 0 {
		n, _ := normalized[0].(map[string]interface{})
		if getString(n, "from") != ref.title {
			return "", "", &ConsistencyError{Requested: ref.title, Recorded: getString(n, "from")}
		}
		fromTitle = getString(n, "to")
	} else if ref.title == "" {
		fromTitle = getString(redirect, "from")
	}

	if getString(redirect, "from") != fromTitle {
		return "", "", &ConsistencyError{Requested: fromTitle, Recorded: getString(redirect, "from")}
	}
	to = getString(redirect, "to")
	if to == "" {
		return "", "", &ConsistencyError{Requested: fromTitle, Recorded: "redirect without target"}
	}
	return fromTitle, to, nil
}

// disambiguation fetches the rendered disambiguation page and builds the error
// listing its candidates
func (c *Client) disambiguation(ctx context.Context, record map[string]interface{}, ref pageRef) error {
	pageID := getInt(record, "pageid")
	params := url.Values{}
	params.Set("prop", "revisions")
	params.Set("rvprop", "content")
	params.Set("rvparse", "")
	params.Set("rvlimit", "1")
	params.Set("pageids", strconv.Itoa(pageID))

	resp, err := c.request(ctx, params)
	if err != nil {
		return err
	}
	page := getMap(getMap(getMap(resp, "query"), "pages"), strconv.Itoa(pageID))
	html := revisionContent(firstRevision(page))

	options, details, err := parseDisambiguation(html)
	if err != nil {
		return fmt.Errorf("failed to parse disambiguation page: %w", err)
	}

	title := ref.title
	if title == "" {
		title = getString(record, "title")
	}
	return &DisambiguationError{
		Title:   title,
		Options: options,
		Details: details,
		URL:     getString(record, "fullurl"),
	}
}

// Preload fetches every lazy property
func (p *Page) Preload(ctx context.Context) error {
	loaders := []func(context.Context) error{
		func(ctx context.Context) error { _, err := p.Content(ctx); return err },
		func(ctx context.Context) error { _, err := p.Summary(ctx); return err },
		func(ctx context.Context) error { _, err := p.Images(ctx); return err },
		func(ctx context.Context) error { _, err := p.References(ctx); return err },
		func(ctx context.Context) error { _, err := p.Links(ctx); return err },
		func(ctx context.Context) error { _, err := p.Sections(ctx); return err },
		func(ctx context.Context) error { _, err := p.Redirects(ctx); return err },
		func(ctx context.Context) error { _, err := p.Coordinates(ctx); return err },
		func(ctx context.Context) error { _, err := p.Backlinks(ctx); return err },
		func(ctx context.Context) error { _, err := p.Categories(ctx); return err },
	}
	for _, load := range loaders {
		if err := load(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Page) String() string {
	return fmt.Sprintf("<Page %q (%d)>", p.Title, p.PageID)
}
