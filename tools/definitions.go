package tools

// AllTools contains all tool specifications for the MediaWiki MCP server.
// Tool descriptions follow a structured format for optimal LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// SEARCH TOOLS
	// ==========================================================================
	{
		Name:     "mediawiki_search",
		Method:   "Search",
		Title:    "Search Wiki",
		Category: "search",
		Description: `Full-text search ACROSS the wiki for pages matching a query.

USE WHEN: User asks "find pages about X", "what does the wiki have on X", or doesn't know the exact page title.

NOT FOR: Completing a title the user has started typing (use mediawiki_prefix_search).

PARAMETERS:
- query: Search text (required)
- limit: Max titles (default 10, max 500)
- suggestion: Also return the wiki's "did you mean" suggestion (default false)

RETURNS: Matching page titles in relevance order and the optional suggestion.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_prefix_search",
		Method:   "PrefixSearch",
		Title:    "Prefix Search",
		Category: "search",
		Description: `List page titles that START WITH the given text.

USE WHEN: User gives the beginning of a title, e.g. "pages starting with Oslo", or a title needs completing.

NOT FOR: Searching page text (use mediawiki_search).

PARAMETERS:
- prefix: Beginning of the title (required)
- limit: Max titles (default 10, max 500)

RETURNS: Matching titles.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_random",
		Method:   "Random",
		Title:    "Random Articles",
		Category: "search",
		Description: `Pick random articles from the main namespace.

USE WHEN: User asks for "a random article", "surprise me", or sample pages.

PARAMETERS:
- count: Number of titles (default 1, max 500)

RETURNS: Random article titles. Results differ on every call.`,
		ReadOnly:  true,
		OpenWorld: true,
	},

	// ==========================================================================
	// READ TOOLS
	// ==========================================================================
	{
		Name:     "mediawiki_get_page",
		Method:   "GetPage",
		Title:    "Get Page",
		Category: "read",
		Description: `Read the plain-text content of a page, following redirects.

USE WHEN: User says "show me the article on X", "what does the page say", "read page X".

NOT FOR: A short introduction (use mediawiki_get_summary). One section of a long page (use mediawiki_get_sections).

PARAMETERS:
- title: Page title (required unless page_id is given)
- page_id: Numeric page id (optional)
- auto_suggest: Replace the title with the best search match first (default true)
- redirect: Follow redirects (default true)

RETURNS: Resolved title, id, URL, revision id and content. Disambiguation pages return found=false with the candidate options; missing pages return found=false with a message.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_get_summary",
		Method:   "GetSummary",
		Title:    "Get Summary",
		Category: "read",
		Description: `Get the introduction of a page as plain text.

USE WHEN: User asks "what is X", "summarize X", "give me a short overview of X".

NOT FOR: The full article (use mediawiki_get_page).

PARAMETERS:
- title: Page title (required)
- sentences: Limit to N sentences (max 10)
- chars: Limit to N characters when sentences is not set
- auto_suggest: Replace the title with the best search match first (default true)

RETURNS: The summary text.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_get_sections",
		Method:   "GetSections",
		Title:    "Get Sections",
		Category: "read",
		Description: `Get the section outline of a page, optionally with one section's text and links.

USE WHEN: User asks "what sections does X have", "show the History section of X", "which links are under References".

NOT FOR: Reading a whole page (use mediawiki_get_page).

PARAMETERS:
- title: Page title (required)
- section: Section heading to return text and links for (optional)
- auto_suggest: Replace the title with the best search match first (default true)

RETURNS: Headings in document order with nesting level and parent, plus the requested section's text and links.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// LINK TOOLS
	// ==========================================================================
	{
		Name:     "mediawiki_get_page_links",
		Method:   "GetPageLinks",
		Title:    "Get Page Links",
		Category: "links",
		Description: `List one kind of link property of a page, across all result pages.

USE WHEN: User asks "what links to X", "which pages does X link to", "what categories is X in", "images on X", "external references of X", "X in other languages".

PARAMETERS:
- title: Page title (required)
- kind: links, backlinks, categories, images, references, redirects or langlinks (default links)

RETURNS: The items of that kind and their count. For langlinks, also language code and title pairs.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// CATEGORY TOOLS
	// ==========================================================================
	{
		Name:     "mediawiki_get_category_members",
		Method:   "CategoryMembers",
		Title:    "Get Category Members",
		Category: "categories",
		Description: `List the pages and subcategories in a category.

USE WHEN: User asks "what's in category X", "list pages in X", "subcategories of X".

NOT FOR: Several levels of subcategories (use mediawiki_category_tree).

PARAMETERS:
- category: Category name, with or without the namespace prefix (required)
- limit: Max members (default 10, -1 for all)
- subcategories: Include subcategories (default true)

RETURNS: Page titles and subcategory names.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_category_tree",
		Method:   "CategoryTree",
		Title:    "Get Category Tree",
		Category: "categories",
		Description: `Expand categories recursively into a tree of subcategories, member pages and parent categories.

USE WHEN: User asks "show the hierarchy under X", "all subcategories of X two levels deep", "map the category structure".

NOT FOR: A single level (use mediawiki_get_category_members, it is much cheaper).

PARAMETERS:
- categories: Root category names (required)
- depth: Levels to expand (default 2, max 5)

RETURNS: One entry per expanded category with its path from the root, members, parents and subcategories. Subcategories beyond the depth limit are listed as unexpanded.

NOTE: Every category costs several API requests. Failed requests are retried with a delay, so large trees can take a while.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
}
