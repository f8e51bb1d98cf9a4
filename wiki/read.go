package wiki

import (
	"context"
	"net/url"
	"slices"
	"strconv"
)

// maxSummarySentences is the most sentences the extracts API returns
const maxSummarySentences = 10

// pageRecord queries properties of this page and returns its record
func (p *Page) pageRecord(ctx context.Context, params url.Values) (map[string]interface{}, error) {
	params.Set("pageids", strconv.Itoa(p.PageID))
	resp, err := p.client.request(ctx, params)
	if err != nil {
		return nil, err
	}
	return getMap(getMap(getMap(resp, "query"), "pages"), strconv.Itoa(p.PageID)), nil
}

func (p *Page) loadContent(ctx context.Context) (pageContent, error) {
	return p.content.get(func() (pageContent, error) {
		params := url.Values{}
		params.Set("prop", "extracts|revisions")
		params.Set("explaintext", "")
		params.Set("rvprop", "ids")

		record, err := p.pageRecord(ctx, params)
		if err != nil {
			return pageContent{}, err
		}
		if !hasKey(record, "extract") {
			info, err := p.client.SiteInfo(ctx)
			if err != nil {
				return pageContent{}, err
			}
			if !slices.Contains(info.Extensions, "TextExtracts") {
				return pageContent{}, &MissingExtensionError{Extension: "TextExtracts", Operation: "page content"}
			}
		}

		rev := firstRevision(record)
		return pageContent{
			text:       getString(record, "extract"),
			revisionID: getInt(rev, "revid"),
			parentID:   getInt(rev, "parentid"),
		}, nil
	})
}

// Content returns the plain-text page content
func (p *Page) Content(ctx context.Context) (string, error) {
	c, err := p.loadContent(ctx)
	return c.text, err
}

// RevisionID returns the id of the current revision; fetched with the content
func (p *Page) RevisionID(ctx context.Context) (int, error) {
	c, err := p.loadContent(ctx)
	return c.revisionID, err
}

// ParentID returns the id of the revision preceding the current one; fetched with the content
func (p *Page) ParentID(ctx context.Context) (int, error) {
	c, err := p.loadContent(ctx)
	return c.parentID, err
}

// HTML returns the rendered page
func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.html.get(func() (string, error) {
		params := url.Values{}
		params.Set("prop", "revisions")
		params.Set("rvprop", "content")
		params.Set("rvlimit", "1")
		params.Set("rvparse", "")

		record, err := p.pageRecord(ctx, params)
		if err != nil {
			return "", err
		}
		return revisionContent(firstRevision(record)), nil
	})
}

// Wikitext returns the page source markup
func (p *Page) Wikitext(ctx context.Context) (string, error) {
	return p.wikitext.get(func() (string, error) {
		params := url.Values{}
		params.Set("action", "parse")
		params.Set("pageid", strconv.Itoa(p.PageID))
		params.Set("prop", "wikitext")
		params.Set("formatversion", "latest")

		resp, err := p.client.request(ctx, params)
		if err != nil {
			return "", err
		}
		return getText(getMap(resp, "parse"), "wikitext"), nil
	})
}

// Summary returns the plain-text introduction
func (p *Page) Summary(ctx context.Context) (string, error) {
	return p.summary.get(func() (string, error) {
		return p.Summarize(ctx, 0, 0)
	})
}

// Summarize returns the start of the page limited to sentences (at most 10) or,
// when sentences is zero, to chars characters. With neither it returns the
// introduction section.
func (p *Page) Summarize(ctx context.Context, sentences, chars int) (string, error) {
	params := url.Values{}
	params.Set("prop", "extracts")
	params.Set("explaintext", "")
	switch {
	case sentences > 0:
		params.Set("exsentences", strconv.Itoa(min(sentences, maxSummarySentences)))
	case chars > 0:
		params.Set("exchars", strconv.Itoa(chars))
	default:
		params.Set("exintro", "")
	}

	record, err := p.pageRecord(ctx, params)
	if err != nil {
		return "", err
	}
	return getString(record, "extract"), nil
}

func (p *Page) outline(ctx context.Context) (sectionOutline, error) {
	return p.sections.get(func() (sectionOutline, error) {
		content, err := p.Content(ctx)
		if err != nil {
			return sectionOutline{}, err
		}
		titles, toc := parseSections(content)
		return sectionOutline{titles: titles, toc: toc}, nil
	})
}

// Sections returns the section headings in document order
func (p *Page) Sections(ctx context.Context) ([]string, error) {
	o, err := p.outline(ctx)
	return o.titles, err
}

// TableOfContents returns the nested section outline
func (p *Page) TableOfContents(ctx context.Context) (*TableOfContents, error) {
	o, err := p.outline(ctx)
	return o.toc, err
}

// Section returns the plain text of one section. An empty title returns the
// text before the first heading; the bool result is false when no section has that title.
func (p *Page) Section(ctx context.Context, title string) (string, bool, error) {
	content, err := p.Content(ctx)
	if err != nil {
		return "", false, err
	}
	text, ok := sectionText(content, title)
	return text, ok, nil
}

// Hatnotes returns the short notes shown above the article body
func (p *Page) Hatnotes(ctx context.Context) ([]string, error) {
	return p.hatnotes.get(func() ([]string, error) {
		html, err := p.HTML(ctx)
		if err != nil {
			return nil, err
		}
		return parseHatnotes(html)
	})
}

// Logos returns image URLs from the page's infobox
func (p *Page) Logos(ctx context.Context) ([]string, error) {
	return p.logos.get(func() ([]string, error) {
		html, err := p.HTML(ctx)
		if err != nil {
			return nil, err
		}
		return parseLogos(html)
	})
}

// ParseSectionLinks returns the links in the body of a section, made absolute.
// The bool result is false when the page has no such section.
func (p *Page) ParseSectionLinks(ctx context.Context, section string) ([]SectionLink, bool, error) {
	html, err := p.HTML(ctx)
	if err != nil {
		return nil, false, err
	}
	return parseSectionLinks(html, section, p.URL, baseURL(p.client.config.APIURL))
}
