package retriever

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// trackerDomains is a set of analytics and tracking domains whose beacons
// keep the viewer's network permanently busy and slow down captures.
// Images and stylesheets are never blocked here: the pages themselves are
// captured as rendered images.
var trackerDomains = map[string]struct{}{
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"doubleclick.net":       {},
	"connect.facebook.net":  {},
	"facebook.net":          {},
	"segment.io":            {},
	"segment.com":           {},
	"mixpanel.com":          {},
	"hotjar.com":            {},
	"fullstory.com":         {},
	"amplitude.com":         {},
	"heapanalytics.com":     {},
	"intercom.io":           {},
	"intercomcdn.com":       {},
	"scorecardresearch.com": {},
	"quantserve.com":        {},
	"chartbeat.com":         {},
	"optimizely.com":        {},
	"pendo.io":              {},
	"newrelic.com":          {},
	"nr-data.net":           {},
	"sentry.io":             {},
	"bugsnag.com":           {},
}

// isTrackerDomain checks if a hostname (or any parent domain) is in the blocklist.
func isTrackerDomain(host string) bool {
	host = strings.ToLower(host)
	if _, ok := trackerDomains[host]; ok {
		return true
	}
	// Check parent domains (e.g. "www.google-analytics.com" → "google-analytics.com").
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
		if _, ok := trackerDomains[host]; ok {
			return true
		}
	}
	return false
}

// setupHijack installs a request interceptor that rejects requests to known
// tracker domains and lets everything else through.
//
// Returns the running HijackRouter so the caller can Stop() it on close.
func setupHijack(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if u, err := url.Parse(ctx.Request.URL().String()); err == nil {
			if isTrackerDomain(u.Hostname()) {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	return router
}
