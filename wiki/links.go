package wiki

import (
	"context"
	"net/url"
	"slices"
	"strings"
)

// Coordinates is a page's primary geographic location
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// perPage builds a continued query for one property of this page
func (p *Page) perPage(params url.Values) *continuedQuery {
	return newContinuedQuery(params, "pages").forPage(p.PageID)
}

// Images returns the URLs of every image used on the page, sorted
func (p *Page) Images(ctx context.Context) ([]string, error) {
	return p.images.get(func() ([]string, error) {
		params := url.Values{}
		params.Set("generator", "images")
		params.Set("gimlimit", "max")
		params.Set("prop", "imageinfo")
		params.Set("iiprop", "url")
		q := newContinuedQuery(params, "pages").forPage(p.PageID)

		images, err := collect(p.client.paginate(ctx, q), func(item map[string]interface{}) (string, bool) {
			info := getSlice(item, "imageinfo")
			if len(info) == 0 {
				return "", false
			}
			first, _ := info[0].(map[string]interface{})
			u := getString(first, "url")
			return u, u != ""
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(images)
		return images, nil
	})
}

// References returns the external links of the page
func (p *Page) References(ctx context.Context) ([]string, error) {
	return p.references.get(func() ([]string, error) {
		params := url.Values{}
		params.Set("prop", "extlinks")
		params.Set("ellimit", "max")

		return collect(p.client.paginate(ctx, p.perPage(params)), func(item map[string]interface{}) (string, bool) {
			link := getString(item, "*")
			if link == "" {
				link = getString(item, "url")
			}
			if strings.HasPrefix(link, "//") {
				link = "http:" + link
			}
			return link, link != ""
		})
	})
}

// Categories returns the visible categories the page belongs to, without the namespace prefix
func (p *Page) Categories(ctx context.Context) ([]string, error) {
	return p.categories.get(func() ([]string, error) {
		params := url.Values{}
		params.Set("prop", "categories")
		params.Set("cllimit", "max")
		params.Set("clshow", "!hidden")

		prefix := p.client.config.CategoryPrefix + ":"
		return collect(p.client.paginate(ctx, p.perPage(params)), func(item map[string]interface{}) (string, bool) {
			t, ok := titleOf(item)
			return strings.TrimPrefix(t, prefix), ok
		})
	})
}

// Links returns the article-namespace pages linked from the page
func (p *Page) Links(ctx context.Context) ([]string, error) {
	return p.links.get(func() ([]string, error) {
		params := url.Values{}
		params.Set("prop", "links")
		params.Set("plnamespace", "0")
		params.Set("pllimit", "max")

		return collect(p.client.paginate(ctx, p.perPage(params)), titleOf)
	})
}

// Redirects returns the titles that redirect to the page
func (p *Page) Redirects(ctx context.Context) ([]string, error) {
	return p.redirects.get(func() ([]string, error) {
		params := url.Values{}
		params.Set("prop", "redirects")
		params.Set("rdprop", "title")
		params.Set("rdlimit", "max")

		return collect(p.client.paginate(ctx, p.perPage(params)), titleOf)
	})
}

// Backlinks returns the article-namespace pages linking to the page, sorted
func (p *Page) Backlinks(ctx context.Context) ([]string, error) {
	return p.backlinks.get(func() ([]string, error) {
		params := url.Values{}
		params.Set("list", "backlinks")
		params.Set("bltitle", p.Title)
		params.Set("bllimit", "max")
		params.Set("blfilterredir", "nonredirects")
		params.Set("blnamespace", "0")

		links, err := collect(p.client.paginate(ctx, newContinuedQuery(params, "backlinks")), titleOf)
		if err != nil {
			return nil, err
		}
		slices.Sort(links)
		return links, nil
	})
}

// Langlinks maps language codes to the page's title in that language edition
func (p *Page) Langlinks(ctx context.Context) (map[string]string, error) {
	return p.langlinks.get(func() (map[string]string, error) {
		params := url.Values{}
		params.Set("prop", "langlinks")
		params.Set("lllimit", "max")

		out := make(map[string]string)
		for item, err := range p.client.paginate(ctx, p.perPage(params)) {
			if err != nil {
				return nil, err
			}
			title := getString(item, "*")
			if title == "" {
				title = getString(item, "title")
			}
			out[getString(item, "lang")] = title
		}
		return out, nil
	})
}

// Coordinates returns the page's primary coordinates, or nil when it has none
func (p *Page) Coordinates(ctx context.Context) (*Coordinates, error) {
	return p.coordinates.get(func() (*Coordinates, error) {
		params := url.Values{}
		params.Set("prop", "coordinates")
		params.Set("colimit", "max")

		record, err := p.pageRecord(ctx, params)
		if err != nil {
			return nil, err
		}
		coords := getSlice(record, "coordinates")
		if len(coords) == 0 {
			return nil, nil
		}
		first, _ := coords[0].(map[string]interface{})
		return &Coordinates{
			Latitude:  getFloat(first, "lat"),
			Longitude: getFloat(first, "lon"),
		}, nil
	})
}
