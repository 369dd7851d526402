package account

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// hostAppRegex matches "<label>.google.com" or a bare "google.com"
	hostAppRegex = regexp.MustCompile(`\w{0,20}\.?google\.com`)

	// A marker carries one or two digits. A longer digit run or a trailing
	// word character makes the marker malformed, which counts as absent.
	pathMarkerRegex  = regexp.MustCompile(`/u/(\d{1,2})(?:\W|$)`)
	queryMarkerRegex = regexp.MustCompile(`authuser=(\d{1,2})(?:\W|$)`)
)

// Outcome is the result of Rewrite. The zero value means no change.
type Outcome struct {
	// URL is the rewritten URL; empty when Changed is false
	URL string

	// Changed is false when the URL already selects the target account
	Changed bool
}

// NoChange is the outcome for a URL that already selects the target account.
var NoChange = Outcome{}

// ExtractHostApp returns the "<label>.google.com" (or "google.com") part of
// rawURL, or "" if rawURL contains no google.com hostname.
func ExtractHostApp(rawURL string) string {
	return hostAppRegex.FindString(rawURL)
}

// CurrentIndex returns the account index encoded in rawURL under the given
// convention. A URL without a well-formed marker selects account 0.
func CurrentIndex(rawURL string, convention Convention) Index {
	start, end, ok := findMarker(rawURL, convention)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(rawURL[start:end])
	if err != nil {
		return 0
	}
	return Index(n)
}

// FormatMarker renders the marker for index under the given convention.
func FormatMarker(convention Convention, index Index) string {
	if convention == QueryParam {
		return "authuser=" + index.String()
	}
	return "/u/" + index.String()
}

// Rewrite returns rawURL rewritten to select the target account of app.
//
// An existing marker is replaced in place. When there is no marker and the
// target is not the default account, one trailing slash is dropped and a new
// marker is inserted: right after the hostname for PathSuffix apps, at the end
// of the URL for QueryParam apps. Everything else in the URL is left as is.
func Rewrite(rawURL string, app App, target Index) Outcome {
	if !target.Valid() {
		return NoChange
	}

	if markerStart, digitsStart, digitsEnd, ok := locateMarker(rawURL, app.Convention); ok {
		current, err := strconv.Atoi(rawURL[digitsStart:digitsEnd])
		if err == nil && Index(current) == target {
			return NoChange
		}
		rewritten := rawURL[:markerStart] + FormatMarker(app.Convention, target) + rawURL[digitsEnd:]
		return Outcome{URL: rewritten, Changed: true}
	}

	if target == 0 {
		return NoChange
	}

	trimmed := strings.TrimSuffix(rawURL, "/")

	switch app.Convention {
	case PathSuffix:
		pos := strings.Index(trimmed, app.Host)
		if pos < 0 {
			// app was not taken from rawURL; the engine never gets here
			return NoChange
		}
		splice := pos + len(app.Host)
		rewritten := trimmed[:splice] + app.PathPrefix + FormatMarker(PathSuffix, target) + trimmed[splice:]
		return Outcome{URL: rewritten, Changed: true}
	case QueryParam:
		return Outcome{URL: trimmed + app.PathPrefix + "?" + FormatMarker(QueryParam, target), Changed: true}
	default:
		return NoChange
	}
}

// findMarker returns the byte span of the marker digits.
func findMarker(rawURL string, convention Convention) (int, int, bool) {
	_, start, end, ok := locateMarker(rawURL, convention)
	return start, end, ok
}

// locateMarker returns the start of the marker and the span of its digits.
func locateMarker(rawURL string, convention Convention) (int, int, int, bool) {
	re := pathMarkerRegex
	if convention == QueryParam {
		re = queryMarkerRegex
	}
	loc := re.FindStringSubmatchIndex(rawURL)
	if loc == nil {
		return 0, 0, 0, false
	}
	return loc[0], loc[2], loc[3], true
}
