package wiki

// Limits applied to tool responses
const (
	DefaultToolLimit = 10
	MaxToolLimit     = 500
	CharacterLimit   = 25000
	MaxToolTreeDepth = 5
)

// ========== Search Types ==========

// SearchArgs contains parameters for full-text search
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"Search query text"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum titles to return (default 10, max 500)"`
	Suggestion bool   `json:"suggestion,omitempty" jsonschema:"Also return the wiki's spelling suggestion"`
}

// SearchResult is the result of a full-text search
type SearchResult struct {
	Query      string   `json:"query"`
	Titles     []string `json:"titles"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// PrefixSearchArgs contains parameters for title prefix search
type PrefixSearchArgs struct {
	Prefix string `json:"prefix" jsonschema:"Beginning of the article title"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum titles to return (default 10, max 500)"`
}

// PrefixSearchResult is the result of a prefix search
type PrefixSearchResult struct {
	Prefix string   `json:"prefix"`
	Titles []string `json:"titles"`
}

// RandomArgs contains parameters for random article selection
type RandomArgs struct {
	Count int `json:"count,omitempty" jsonschema:"Number of random articles (default 1, max 500)"`
}

// RandomResult is a list of random article titles
type RandomResult struct {
	Titles []string `json:"titles"`
}

// ========== Page Types ==========

// GetPageArgs contains parameters for reading a page
type GetPageArgs struct {
	Title       string `json:"title,omitempty" jsonschema:"Page title; either title or page_id is required"`
	PageID      int    `json:"page_id,omitempty" jsonschema:"Numeric page id; used when title is empty"`
	AutoSuggest *bool  `json:"auto_suggest,omitempty" jsonschema:"Replace the title with the best search match first (default true)"`
	Redirect    *bool  `json:"redirect,omitempty" jsonschema:"Follow redirects (default true)"`
}

// GetPageResult is a resolved page with its plain-text content. A disambiguation
// page or a missing page is reported with Found set to false.
type GetPageResult struct {
	Found          bool                  `json:"found"`
	Title          string                `json:"title"`
	PageID         int                   `json:"page_id,omitempty"`
	URL            string                `json:"url,omitempty"`
	RevisionID     int                   `json:"revision_id,omitempty"`
	Content        string                `json:"content,omitempty"`
	Truncated      bool                  `json:"truncated,omitempty"`
	Disambiguation *DisambiguationResult `json:"disambiguation,omitempty"`
	Message        string                `json:"message,omitempty"`
}

// DisambiguationResult lists what an ambiguous title may refer to
type DisambiguationResult struct {
	Options    []string                  `json:"options"`
	Candidates []DisambiguationCandidate `json:"candidates"`
}

// GetSummaryArgs contains parameters for a page summary
type GetSummaryArgs struct {
	Title       string `json:"title" jsonschema:"Page title"`
	Sentences   int    `json:"sentences,omitempty" jsonschema:"Limit to this many sentences (max 10)"`
	Chars       int    `json:"chars,omitempty" jsonschema:"Limit to this many characters when sentences is not set"`
	AutoSuggest *bool  `json:"auto_suggest,omitempty" jsonschema:"Replace the title with the best search match first (default true)"`
}

// GetSummaryResult is the summary of a page
type GetSummaryResult struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// GetSectionsArgs contains parameters for reading a page's section structure
type GetSectionsArgs struct {
	Title       string `json:"title" jsonschema:"Page title"`
	Section     string `json:"section,omitempty" jsonschema:"Also return the text and links of this section"`
	AutoSuggest *bool  `json:"auto_suggest,omitempty" jsonschema:"Replace the title with the best search match first (default true)"`
}

// GetSectionsResult is a page outline, optionally with one section's body
type GetSectionsResult struct {
	Title    string         `json:"title"`
	Sections []SectionEntry `json:"sections"`
	Text     string         `json:"text,omitempty"`
	Links    []SectionLink  `json:"links,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// SectionEntry is one heading of the outline; Level 0 is a top-level section
type SectionEntry struct {
	Title  string `json:"title"`
	Level  int    `json:"level"`
	Parent string `json:"parent,omitempty"`
}

// GetPageLinksArgs contains parameters for listing a page's link properties
type GetPageLinksArgs struct {
	Title string `json:"title" jsonschema:"Page title"`
	Kind  string `json:"kind,omitempty" jsonschema:"One of links, backlinks, categories, images, references, redirects, langlinks (default links)"`
}

// GetPageLinksResult lists one link property of a page
type GetPageLinksResult struct {
	Title     string     `json:"title"`
	Kind      string     `json:"kind"`
	Items     []string   `json:"items"`
	Languages []LangLink `json:"languages,omitempty"`
	Count     int        `json:"count"`
}

// LangLink is the title of a page in another language edition
type LangLink struct {
	Lang  string `json:"lang"`
	Title string `json:"title"`
}

// ========== Category Types ==========

// CategoryMembersArgs contains parameters for listing category members
type CategoryMembersArgs struct {
	Category      string `json:"category" jsonschema:"Category name without the namespace prefix"`
	Limit         int    `json:"limit,omitempty" jsonschema:"Maximum members (default 10, -1 for all)"`
	Subcategories *bool  `json:"subcategories,omitempty" jsonschema:"Include subcategories (default true)"`
}

// CategoryMembersResult lists the members of a category
type CategoryMembersResult struct {
	Category      string   `json:"category"`
	Pages         []string `json:"pages"`
	Subcategories []string `json:"subcategories"`
}

// CategoryTreeArgs contains parameters for building a category tree
type CategoryTreeArgs struct {
	Categories []string `json:"categories" jsonschema:"Root category names without the namespace prefix"`
	Depth      int      `json:"depth,omitempty" jsonschema:"Levels to expand below the roots (default 2, max 5)"`
}

// CategoryTreeResult is a category tree flattened into entries in traversal order
type CategoryTreeResult struct {
	Roots   []string            `json:"roots"`
	Depth   int                 `json:"depth"`
	Entries []CategoryTreeEntry `json:"entries"`
}

// CategoryTreeEntry is one expanded category. Path joins the category names
// from the root with " > ". Unexpanded lists subcategories known but not expanded.
type CategoryTreeEntry struct {
	Name             string   `json:"name"`
	Path             string   `json:"path"`
	Depth            int      `json:"depth"`
	Links            []string `json:"links"`
	ParentCategories []string `json:"parent_categories"`
	SubCategories    []string `json:"sub_categories"`
	Unexpanded       []string `json:"unexpanded,omitempty"`
}
