package httputil

import (
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

// BackURLParam is the query parameter naming the page to return to.
const BackURLParam = "BackURL"

// BackURL picks where to send the user after an action: the BackURL query
// parameter, then the Referer header, then "/". Targets pointing at another
// site are ignored.
func BackURL(r *http.Request) string {
	if back := r.URL.Query().Get(BackURLParam); back != "" && isSiteURL(r, back) {
		return back
	}
	if referer := r.Referer(); referer != "" && isSiteURL(r, referer) {
		return referer
	}
	return "/"
}

// RedirectBack sends a 302 to BackURL(r).
func RedirectBack(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, BackURL(r), http.StatusFound)
}

func isSiteURL(r *http.Request, target string) bool {
	// Browsers read "\" as "/", so "/\host" would leave the site.
	if strings.ContainsAny(target, "\\") || strings.ContainsFunc(target, unicode.IsControl) {
		return false
	}

	u, err := url.Parse(target)
	if err != nil {
		return false
	}

	// Relative paths stay on this site; "//host" does not.
	if u.Scheme == "" && u.Host == "" {
		return strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(target, "//")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
