package util

import (
	"fmt"
	"net/url"
	"strings"
)

// ProductLink builds the canonical product page link for a marketplace host.
func ProductLink(marketplace, asin, tag string) string {
	host := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(marketplace, "https://"), "http://"), "/")
	link := fmt.Sprintf("https://%s/dp/%s", host, url.PathEscape(asin))
	if tag == "" {
		return link
	}
	return link + "?tag=" + url.QueryEscape(tag)
}

// EnsureAffiliateTag rewrites the tag query parameter of an Amazon link.
// Non Amazon links and unparsable input are returned unchanged.
func EnsureAffiliateTag(rawURL, tag string) (string, bool) {
	if tag == "" {
		return rawURL, false
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil || !strings.Contains(parsedURL.Host, "amazon.") {
		return rawURL, false
	}

	queryParams := parsedURL.Query()
	if queryParams.Get("tag") == tag {
		return rawURL, false
	}
	queryParams.Set("tag", tag)
	parsedURL.RawQuery = queryParams.Encode()
	return parsedURL.String(), true
}
