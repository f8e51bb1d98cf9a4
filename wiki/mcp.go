package wiki

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// MCP tool wrapper methods
// These methods adapt the client operations to Args/Result types for MCP integration.

// SearchMCP is the MCP wrapper for Search
func (c *Client) SearchMCP(ctx context.Context, args SearchArgs) (SearchResult, error) {
	res, err := c.Search(ctx, args.Query, normalizeLimit(args.Limit, DefaultToolLimit, MaxToolLimit), args.Suggestion)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Query: args.Query, Titles: res.Titles, Suggestion: res.Suggestion}, nil
}

// PrefixSearchMCP is the MCP wrapper for PrefixSearch
func (c *Client) PrefixSearchMCP(ctx context.Context, args PrefixSearchArgs) (PrefixSearchResult, error) {
	titles, err := c.PrefixSearch(ctx, args.Prefix, normalizeLimit(args.Limit, DefaultToolLimit, MaxToolLimit))
	if err != nil {
		return PrefixSearchResult{}, err
	}
	return PrefixSearchResult{Prefix: args.Prefix, Titles: titles}, nil
}

// RandomMCP is the MCP wrapper for Random
func (c *Client) RandomMCP(ctx context.Context, args RandomArgs) (RandomResult, error) {
	titles, err := c.Random(ctx, normalizeLimit(args.Count, 1, MaxToolLimit))
	if err != nil {
		return RandomResult{}, err
	}
	return RandomResult{Titles: titles}, nil
}

// GetPageMCP is the MCP wrapper for page resolution and content
func (c *Client) GetPageMCP(ctx context.Context, args GetPageArgs) (GetPageResult, error) {
	opts := []PageOption{WithAutoSuggest(boolOr(args.AutoSuggest, true)), WithRedirect(boolOr(args.Redirect, true))}

	var page *Page
	var err error
	switch {
	case args.Title != "":
		page, err = c.Page(ctx, args.Title, opts...)
	case args.PageID > 0:
		page, err = c.PageByID(ctx, args.PageID, opts...)
	default:
		return GetPageResult{}, &ValidationError{Field: "title", Message: "either title or page_id is required"}
	}
	if err != nil {
		if res, ok := unresolvedResult(args.Title, err); ok {
			return res, nil
		}
		return GetPageResult{}, err
	}

	content, err := page.Content(ctx)
	if err != nil {
		return GetPageResult{}, err
	}
	revID, err := page.RevisionID(ctx)
	if err != nil {
		return GetPageResult{}, err
	}

	result := GetPageResult{
		Found:      true,
		Title:      page.Title,
		PageID:     page.PageID,
		URL:        page.URL,
		RevisionID: revID,
	}
	result.Content, result.Truncated = truncateContent(content, CharacterLimit)
	if result.Truncated {
		result.Message = "Content was truncated due to size limits. Use mediawiki_get_sections to read one section."
	}
	return result, nil
}

// unresolvedResult turns the expected resolution outcomes into a structured result
func unresolvedResult(title string, err error) (GetPageResult, bool) {
	var disambig *DisambiguationError
	if errors.As(err, &disambig) {
		return GetPageResult{
			Title: disambig.Title,
			URL:   disambig.URL,
			Disambiguation: &DisambiguationResult{
				Options:    disambig.Options,
				Candidates: disambig.Details,
			},
			Message: fmt.Sprintf("%q is a disambiguation page; request one of the options instead", disambig.Title),
		}, true
	}
	var notFound *PageNotFoundError
	if errors.As(err, &notFound) {
		return GetPageResult{Title: title, Message: notFound.Error()}, true
	}
	var redirect *RedirectError
	if errors.As(err, &redirect) {
		return GetPageResult{Title: redirect.Title, Message: redirect.Error()}, true
	}
	return GetPageResult{}, false
}

// GetSummaryMCP is the MCP wrapper for Summary
func (c *Client) GetSummaryMCP(ctx context.Context, args GetSummaryArgs) (GetSummaryResult, error) {
	opts := DefaultSummaryOptions()
	opts.Sentences = args.Sentences
	opts.Chars = args.Chars
	opts.AutoSuggest = boolOr(args.AutoSuggest, true)

	summary, err := c.Summary(ctx, args.Title, opts)
	if err != nil {
		return GetSummaryResult{}, err
	}
	return GetSummaryResult{Title: args.Title, Summary: summary}, nil
}

// GetSectionsMCP is the MCP wrapper for the section outline of a page
func (c *Client) GetSectionsMCP(ctx context.Context, args GetSectionsArgs) (GetSectionsResult, error) {
	page, err := c.Page(ctx, args.Title, WithAutoSuggest(boolOr(args.AutoSuggest, true)))
	if err != nil {
		return GetSectionsResult{}, err
	}
	toc, err := page.TableOfContents(ctx)
	if err != nil {
		return GetSectionsResult{}, err
	}

	result := GetSectionsResult{Title: page.Title, Sections: flattenSections(toc, "", 0, nil)}
	if args.Section == "" {
		return result, nil
	}

	text, ok, err := page.Section(ctx, args.Section)
	if err != nil {
		return GetSectionsResult{}, err
	}
	if !ok {
		result.Message = fmt.Sprintf("section %q not found", args.Section)
		return result, nil
	}
	result.Text, _ = truncateContent(text, CharacterLimit)

	links, _, err := page.ParseSectionLinks(ctx, args.Section)
	if err != nil {
		return GetSectionsResult{}, err
	}
	result.Links = links
	return result, nil
}

// flattenSections lists the outline depth first in document order
func flattenSections(toc *TableOfContents, parent string, level int, out []SectionEntry) []SectionEntry {
	if out == nil {
		out = []SectionEntry{}
	}
	for _, title := range toc.Keys() {
		out = append(out, SectionEntry{Title: title, Level: level, Parent: parent})
		child, _ := toc.Get(title)
		out = flattenSections(child, title, level+1, out)
	}
	return out
}

// GetPageLinksMCP is the MCP wrapper for the paginated link properties of a page
func (c *Client) GetPageLinksMCP(ctx context.Context, args GetPageLinksArgs) (GetPageLinksResult, error) {
	kind := strings.ToLower(strings.TrimSpace(args.Kind))
	if kind == "" {
		kind = "links"
	}

	getters := map[string]func(*Page, context.Context) ([]string, error){
		"links":      (*Page).Links,
		"backlinks":  (*Page).Backlinks,
		"categories": (*Page).Categories,
		"images":     (*Page).Images,
		"references": (*Page).References,
		"redirects":  (*Page).Redirects,
	}
	get, ok := getters[kind]
	if !ok && kind != "langlinks" {
		return GetPageLinksResult{}, &ValidationError{
			Field:      "kind",
			Value:      args.Kind,
			Message:    "unknown link kind",
			Suggestion: "Use one of links, backlinks, categories, images, references, redirects, langlinks",
		}
	}

	page, err := c.Page(ctx, args.Title)
	if err != nil {
		return GetPageLinksResult{}, err
	}
	result := GetPageLinksResult{Title: page.Title, Kind: kind, Items: []string{}}

	if kind == "langlinks" {
		langs, err := page.Langlinks(ctx)
		if err != nil {
			return GetPageLinksResult{}, err
		}
		for _, lang := range slices.Sorted(maps.Keys(langs)) {
			result.Languages = append(result.Languages, LangLink{Lang: lang, Title: langs[lang]})
			result.Items = append(result.Items, langs[lang])
		}
		result.Count = len(result.Items)
		return result, nil
	}

	items, err := get(page, ctx)
	if err != nil {
		return GetPageLinksResult{}, err
	}
	result.Items = items
	result.Count = len(items)
	return result, nil
}

// CategoryMembersMCP is the MCP wrapper for CategoryMembers
func (c *Client) CategoryMembersMCP(ctx context.Context, args CategoryMembersArgs) (CategoryMembersResult, error) {
	limit := args.Limit
	if limit < 0 {
		limit = NoLimit
	}
	category := strings.TrimPrefix(args.Category, c.config.CategoryPrefix+":")

	pages, subcats, err := c.CategoryMembers(ctx, category, limit, boolOr(args.Subcategories, true))
	if err != nil {
		return CategoryMembersResult{}, err
	}
	return CategoryMembersResult{Category: category, Pages: pages, Subcategories: subcats}, nil
}

// CategoryTreeMCP is the MCP wrapper for CategoryTree
func (c *Client) CategoryTreeMCP(ctx context.Context, args CategoryTreeArgs) (CategoryTreeResult, error) {
	depth := normalizeLimit(args.Depth, 2, MaxToolTreeDepth)

	roots := make([]string, 0, len(args.Categories))
	for _, name := range args.Categories {
		roots = append(roots, strings.TrimPrefix(strings.TrimSpace(name), c.config.CategoryPrefix+":"))
	}

	tree, err := c.CategoryTree(ctx, roots, WithMaxDepth(depth))
	if err != nil {
		return CategoryTreeResult{}, err
	}

	result := CategoryTreeResult{Depth: depth, Roots: slices.Sorted(maps.Keys(tree)), Entries: []CategoryTreeEntry{}}
	for _, name := range result.Roots {
		result.Entries = flattenTree(name, name, tree[name], result.Entries)
	}
	return result, nil
}

// flattenTree lists node and its expanded descendants, subcategories in name order
func flattenTree(name, path string, node *CategoryTreeNode, out []CategoryTreeEntry) []CategoryTreeEntry {
	entry := CategoryTreeEntry{
		Name:             name,
		Path:             path,
		Depth:            node.Depth,
		Links:            node.Links,
		ParentCategories: node.ParentCategories,
		SubCategories:    slices.Sorted(maps.Keys(node.SubCategories)),
	}
	for _, sub := range entry.SubCategories {
		if node.SubCategories[sub] == nil {
			entry.Unexpanded = append(entry.Unexpanded, sub)
		}
	}
	out = append(out, entry)

	for _, sub := range entry.SubCategories {
		if child := node.SubCategories[sub]; child != nil {
			out = flattenTree(sub, path+" > "+sub, child, out)
		}
	}
	return out
}

// normalizeLimit ensures limit is within bounds
func normalizeLimit(limit, defaultVal, maxVal int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > maxVal {
		return maxVal
	}
	return limit
}

// truncateContent truncates content if it exceeds the limit, cutting on a
// character boundary
func truncateContent(content string, limit int) (string, bool) {
	if len(content) <= limit {
		return content, false
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}

	truncationMsg := fmt.Sprintf(`

---
[CONTENT TRUNCATED]
Showing: %d of %d characters (%.1f%% of full content)`,
		cut, len(content), float64(cut)/float64(len(content))*100)

	return content[:cut] + truncationMsg, true
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
