package wiki

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/olgasafonova/mediawiki-mcp-server/metrics"
	"github.com/olgasafonova/mediawiki-mcp-server/tracing"
)

const (
	// NoLimit requests every member of a category
	NoLimit = -1

	// DefaultCategoryResults is the member count returned when none is requested
	DefaultCategoryResults = 10

	// DefaultTreeDepth bounds a category tree when no depth option is given
	DefaultTreeDepth = 5
)

// categoryMembership is the memoized result of CategoryMembers
type categoryMembership struct {
	pages   []string
	subcats []string
}

type categoryMembersArgs struct {
	category      string
	results       int
	subcategories bool
}

// CategoryMembers lists the pages and, when subcategories is true, the
// subcategories of category. Subcategory names have the category prefix removed.
// results caps the total count; NoLimit returns every member and zero means
// DefaultCategoryResults.
func (c *Client) CategoryMembers(ctx context.Context, category string, results int, subcategories bool) (pages, subcats []string, err error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, nil, &ValidationError{Field: "category", Message: "category must be specified"}
	}
	if results == 0 {
		results = DefaultCategoryResults
	}

	args := categoryMembersArgs{category: category, results: results, subcategories: subcategories}
	m, err := memoize(c, "categorymembers", args, func() (categoryMembership, error) {
		return c.categoryMembers(ctx, args)
	})
	if err != nil {
		return nil, nil, err
	}
	return m.pages, m.subcats, nil
}

func (c *Client) categoryMembers(ctx context.Context, args categoryMembersArgs) (categoryMembership, error) {
	prefix := c.config.CategoryPrefix + ":"

	params := url.Values{}
	params.Set("list", "categorymembers")
	params.Set("cmprop", "ids|title|type")
	params.Set("cmtitle", prefix+args.category)
	if args.subcategories {
		params.Set("cmtype", "page|subcat|file")
	} else {
		params.Set("cmtype", "page|file")
	}

	q := newContinuedQuery(params, "categorymembers").withLegacyContinue()
	if args.results > 0 {
		params.Set("cmlimit", strconv.Itoa(args.results))
		q.withLimit(args.results, "cmlimit")
	} else {
		params.Set("cmlimit", "max")
	}

	m := categoryMembership{pages: []string{}, subcats: []string{}}
	for item, err := range c.paginate(ctx, q) {
		if err != nil {
			return categoryMembership{}, err
		}
		title := getString(item, "title")
		switch getString(item, "type") {
		case "page", "file":
			m.pages = append(m.pages, title)
		case "subcat":
			m.subcats = append(m.subcats, strings.TrimPrefix(title, prefix))
		}
	}
	return m, nil
}

// CategoryTreeNode is one category of a tree. A nil entry in SubCategories is
// a known subcategory that was not expanded, either because the depth limit was
// reached or because it is already being expanded higher up the same branch.
type CategoryTreeNode struct {
	Depth            int                          `json:"depth"`
	Links            []string                     `json:"links"`
	ParentCategories []string                     `json:"parent-categories"`
	SubCategories    map[string]*CategoryTreeNode `json:"sub-categories"`
}

// TreeOption configures CategoryTree
type TreeOption func(*treeOptions)

type treeOptions struct {
	maxDepth int // zero means unbounded
	err      error
}

// WithMaxDepth limits expansion to depth levels below the roots; depth must be at least 1
func WithMaxDepth(depth int) TreeOption {
	return func(o *treeOptions) {
		if depth < 1 {
			o.err = &ValidationError{
				Field:      "depth",
				Value:      strconv.Itoa(depth),
				Message:    "depth must be at least 1",
				Suggestion: "Use WithUnboundedDepth to expand every level",
			}
			return
		}
		o.maxDepth = depth
	}
}

// WithUnboundedDepth expands subcategories until none remain
func WithUnboundedDepth() TreeOption {
	return func(o *treeOptions) {
		o.maxDepth = 0
	}
}

// treeBuilder holds the per-call state of one CategoryTree call
type treeBuilder struct {
	client   *Client
	maxDepth int

	members   map[string]treeMembership
	expanding map[string]bool
}

// treeMembership is everything fetched for one category
type treeMembership struct {
	parents []string
	links   []string
	subcats []string
}

// CategoryTree builds the subcategory graph below each named category. Blank
// names are skipped; repeated names collapse into one entry. Each category is
// fetched once per call and reused across branches.
func (c *Client) CategoryTree(ctx context.Context, categories []string, opts ...TreeOption) (tree map[string]*CategoryTreeNode, err error) {
	o := treeOptions{maxDepth: DefaultTreeDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}

	var roots []string
	for _, name := range categories {
		if name = strings.TrimSpace(name); name != "" {
			roots = append(roots, name)
		}
	}
	if len(roots) == 0 {
		return nil, &ValidationError{Field: "categories", Message: "at least one category must be specified"}
	}

	ctx, span := tracing.StartSpan(ctx, "wiki.category_tree")
	tracing.AddCategoryAttributes(span, roots, o.maxDepth)
	defer func() { tracing.EndSpan(span, err) }()

	b := &treeBuilder{
		client:    c,
		maxDepth:  o.maxDepth,
		members:   make(map[string]treeMembership),
		expanding: make(map[string]bool),
	}

	tree = make(map[string]*CategoryTreeNode, len(roots))
	for _, name := range roots {
		if _, ok := tree[name]; ok {
			continue
		}
		node, err := b.build(ctx, name, 0)
		if err != nil {
			return nil, err
		}
		tree[name] = node
	}
	return tree, nil
}

func (b *treeBuilder) build(ctx context.Context, name string, level int) (*CategoryTreeNode, error) {
	m, err := b.fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	node := &CategoryTreeNode{
		Depth:            level,
		Links:            m.links,
		ParentCategories: m.parents,
		SubCategories:    make(map[string]*CategoryTreeNode, len(m.subcats)),
	}

	b.expanding[name] = true
	defer delete(b.expanding, name)

	for _, sub := range m.subcats {
		if (b.maxDepth > 0 && level >= b.maxDepth) || b.expanding[sub] {
			node.SubCategories[sub] = nil
			continue
		}
		child, err := b.build(ctx, sub, level+1)
		if err != nil {
			return nil, err
		}
		node.SubCategories[sub] = child
	}
	return node, nil
}

// fetch loads a category's page and membership, retrying transient failures
// with a fixed delay. Errors that another attempt cannot fix (a missing page,
// a redirect loop, an inconsistent or invalid response) fail at once.
func (b *treeBuilder) fetch(ctx context.Context, name string) (treeMembership, error) {
	if m, ok := b.members[name]; ok {
		return m, nil
	}

	c := b.client
	m, err := backoff.Retry(ctx,
		func() (treeMembership, error) {
			return b.load(ctx, name)
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.config.CategoryRetryDelay)),
		backoff.WithMaxTries(uint(c.config.CategoryRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.CategoryRetries.Inc()
			c.logger.Warn("Retrying category fetch",
				"category", name,
				"error", err,
				"retry_in", next)
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		if isPermanent(err) || ctx.Err() != nil {
			return treeMembership{}, err
		}
		return treeMembership{}, &CategoryTreeError{Category: name, Err: err}
	}

	b.members[name] = m
	return m, nil
}

func (b *treeBuilder) load(ctx context.Context, name string) (treeMembership, error) {
	c := b.client
	title := c.config.CategoryPrefix + ":" + name

	page, err := c.Page(ctx, title, WithAutoSuggest(false))
	if err != nil {
		var notFound *PageNotFoundError
		if errors.As(err, &notFound) {
			return treeMembership{}, backoff.Permanent(&PageNotFoundError{Title: title})
		}
		return treeMembership{}, retryable(ctx, err)
	}

	parents, err := page.Categories(ctx)
	if err != nil {
		return treeMembership{}, retryable(ctx, err)
	}
	links, subcats, err := c.CategoryMembers(ctx, name, NoLimit, true)
	if err != nil {
		return treeMembership{}, retryable(ctx, err)
	}
	return treeMembership{parents: parents, links: links, subcats: subcats}, nil
}

// retryable marks err permanent when another attempt would fail the same way
func retryable(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}
	if isPermanent(err) {
		return backoff.Permanent(err)
	}
	return err
}

// isPermanent reports whether err comes from the wiki's content rather than
// from a transient failure
func isPermanent(err error) bool {
	var (
		notFound    *PageNotFoundError
		validation  *ValidationError
		disambig    *DisambiguationError
		loop        *RedirectLoopError
		consistency *ConsistencyError
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &validation) ||
		errors.As(err, &disambig) ||
		errors.As(err, &loop) ||
		errors.As(err, &consistency)
}
