package wiki

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
)

// SiteInfo describes the wiki software behind the API endpoint
type SiteInfo struct {
	Generator  string   `json:"generator"`   // e.g. "MediaWiki 1.43.0-wmf.1"
	APIVersion string   `json:"api_version"` // numeric part of Generator, e.g. "1.43.0"
	BaseURL    string   `json:"base_url"`    // site root used for absolute links
	Extensions []string `json:"extensions"`  // installed extension names, sorted
}

// SiteInfo returns the site description, fetched once per client and language
func (c *Client) SiteInfo(ctx context.Context) (*SiteInfo, error) {
	if c.siteInfo != nil {
		return c.siteInfo, nil
	}

	params := url.Values{}
	params.Set("meta", "siteinfo")
	params.Set("siprop", "extensions|general")

	resp, err := c.request(ctx, params)
	if err != nil {
		return nil, err
	}
	query := getMap(resp, "query")
	general := getMap(query, "general")
	if general == nil {
		return nil, errors.New("siteinfo response has no general section")
	}

	info := &SiteInfo{
		Generator:  getString(general, "generator"),
		BaseURL:    getString(general, "server"),
		Extensions: []string{},
	}
	info.APIVersion = apiVersion(info.Generator)
	if strings.HasPrefix(info.BaseURL, "//") {
		scheme, _, _ := strings.Cut(c.config.APIURL, "//")
		info.BaseURL = scheme + info.BaseURL
	}
	for _, rec := range getSlice(query, "extensions") {
		ext, _ := rec.(map[string]interface{})
		if name := getString(ext, "name"); name != "" {
			info.Extensions = append(info.Extensions, name)
		}
	}
	slices.Sort(info.Extensions)
	info.Extensions = slices.Compact(info.Extensions)

	c.siteInfo = info
	return info, nil
}

// apiVersion extracts "1.43.0" from "MediaWiki 1.43.0-wmf.1"
func apiVersion(generator string) string {
	_, version, ok := strings.Cut(generator, " ")
	if !ok {
		return ""
	}
	version, _, _ = strings.Cut(version, "-")
	return version
}

// Languages maps the language codes the wiki knows to their local names
func (c *Client) Languages(ctx context.Context) (map[string]string, error) {
	return memoize(c, "languages", struct{}{}, func() (map[string]string, error) {
		params := url.Values{}
		params.Set("meta", "siteinfo")
		params.Set("siprop", "languages")

		resp, err := c.request(ctx, params)
		if err != nil {
			return nil, err
		}
		out := make(map[string]string)
		for _, rec := range getSlice(getMap(resp, "query"), "languages") {
			lang, _ := rec.(map[string]interface{})
			name := getString(lang, "*")
			if name == "" {
				name = getString(lang, "name")
			}
			out[getString(lang, "code")] = name
		}
		return out, nil
	})
}

// Login authenticates with the configured bot password. The session cookie is
// kept by the transport for subsequent requests.
func (c *Client) Login(ctx context.Context) error {
	if !c.config.HasCredentials() {
		return &ValidationError{
			Field:      "credentials",
			Message:    "username and password are required to log in",
			Suggestion: "Set MEDIAWIKI_USERNAME and MEDIAWIKI_PASSWORD to a bot password",
		}
	}

	params := url.Values{}
	params.Set("meta", "tokens")
	params.Set("type", "login")
	resp, err := c.request(ctx, params)
	if err != nil {
		return err
	}
	token := getString(getMap(getMap(resp, "query"), "tokens"), "logintoken")

	loginParams := url.Values{}
	loginParams.Set("action", "login")
	loginParams.Set("lgname", c.config.Username)
	loginParams.Set("lgpassword", c.config.Password)
	loginParams.Set("lgtoken", token)
	resp, err = c.send(ctx, loginParams, true)
	if err != nil {
		return err
	}

	login := getMap(resp, "login")
	if result := getString(login, "result"); result != "Success" {
		c.loggedIn = false
		return &LoginError{Username: c.config.Username, Result: result, Reason: getString(login, "reason")}
	}

	c.loggedIn = true
	c.logger.Info("Logged in", "user", c.config.Username)
	return nil
}

// LoggedIn reports whether Login succeeded on this client
func (c *Client) LoggedIn() bool {
	return c.loggedIn
}
