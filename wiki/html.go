package wiki

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extraction of the few structures read from rendered page HTML

func parseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// parseDisambiguation lists the candidates of a rendered disambiguation page.
// Options are the first link texts of each list item in page order; details hold
// one entry per list item, linked or not. Table of contents entries are skipped.
func parseDisambiguation(html string) ([]string, []DisambiguationCandidate, error) {
	doc, err := parseHTML(html)
	if err != nil {
		return nil, nil, err
	}

	options := []string{}
	details := []DisambiguationCandidate{}
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		if strings.Contains(li.AttrOr("class", ""), "tocsection") {
			return
		}
		text := li.Text()
		link := li.Find("a").First()

		candidate := DisambiguationCandidate{Title: text, Description: text}
		if link.Length() > 0 {
			options = append(options, link.Text())
			if title, ok := link.Attr("title"); ok {
				candidate.Title = title
			}
		}
		details = append(details, candidate)
	})
	return options, details, nil
}

// parseHatnotes returns the text of every hatnote block
func parseHatnotes(html string) ([]string, error) {
	doc, err := parseHTML(html)
	if err != nil {
		return nil, err
	}
	return doc.Find("div.hatnote").Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	}), nil
}

// parseLogos returns the image URLs linked from the page's first infobox
func parseLogos(html string) ([]string, error) {
	doc, err := parseHTML(html)
	if err != nil {
		return nil, err
	}
	logos := []string{}
	doc.Find("table.infobox").First().
		Find("a.image img, a.mw-file-description img").
		Each(func(_ int, img *goquery.Selection) {
			src, ok := img.Attr("src")
			if !ok {
				return
			}
			if strings.HasPrefix(src, "//") {
				src = "https:" + src
			}
			logos = append(logos, src)
		})
	return logos, nil
}

// SectionLink is a link found in the body of a section
type SectionLink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

const headlineSelector = "span.mw-headline, div.mw-heading > h2, div.mw-heading > h3, div.mw-heading > h4, div.mw-heading > h5, div.mw-heading > h6"

// parseSectionLinks collects the links between the heading titled section and
// the next heading. Navigation boxes and infoboxes are skipped. Fragment links
// are resolved against pageURL and relative links against siteURL. The bool
// result is false when no heading has that title.
func parseSectionLinks(html, section, pageURL, siteURL string) ([]SectionLink, bool, error) {
	doc, err := parseHTML(html)
	if err != nil {
		return nil, false, err
	}

	var heading *goquery.Selection
	doc.Find(headlineSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(s.Text()), strings.TrimSpace(section)) {
			heading = s
			return false
		}
		return true
	})
	if heading == nil {
		return nil, false, nil
	}

	links := []SectionLink{}
	heading.Parent().NextAll().EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if node.AttrOr("role", "") == "navigation" || node.HasClass("infobox") {
			return true
		}
		if node.HasClass("mw-heading") || node.Find("span.mw-headline").Length() > 0 {
			return false
		}
		anchors := node.Find("a")
		if goquery.NodeName(node) == "a" {
			anchors = node
		}
		anchors.Each(func(_ int, a *goquery.Selection) {
			links = append(links, linkInfo(a, pageURL, siteURL))
		})
		return true
	})
	return links, true, nil
}

func linkInfo(a *goquery.Selection, pageURL, siteURL string) SectionLink {
	href := a.AttrOr("href", "")
	text := a.Text()
	if text == "" {
		text = href
	}

	switch {
	case strings.HasPrefix(href, "#"):
		return SectionLink{Text: text, URL: pageURL + href}
	case isRelativeURL(href):
		return SectionLink{Text: text, URL: siteURL + href}
	default:
		return SectionLink{Text: text, URL: href}
	}
}

func isRelativeURL(href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
