package account

import (
	"sort"
	"strconv"
)

// Convention identifies how an app encodes the account index in its URLs.
type Convention int

const (
	// PathSuffix encodes the index as a "/u/<n>" path segment
	PathSuffix Convention = iota
	// QueryParam encodes the index as an "authuser=<n>" query parameter
	QueryParam
)

// String returns the configuration name of the convention.
func (c Convention) String() string {
	switch c {
	case PathSuffix:
		return "path_suffix"
	case QueryParam:
		return "query_param"
	default:
		return "unknown"
	}
}

// Index is a zero-based account selector. 0 is the default account.
type Index int

// MaxIndex is the largest index a marker can carry (two digits).
const MaxIndex Index = 99

// String returns the decimal form of the index, which is also the
// indicator label shown while locked.
func (i Index) String() string {
	return strconv.Itoa(int(i))
}

// Valid reports whether the index can be encoded in a marker.
func (i Index) Valid() bool {
	return i >= 0 && i <= MaxIndex
}

// App describes a supported web app.
type App struct {
	// Host is the app hostname, e.g. "mail.google.com"
	Host string

	// Convention is the account encoding used by the app
	Convention Convention

	// PathPrefix is inserted before a new marker when the URL has none
	PathPrefix string
}

// apps is the fixed registry, keyed by hostname.
var apps = map[string]App{
	// authuser=<n> apps
	"meet.google.com": {Host: "meet.google.com", Convention: QueryParam},
	"maps.google.com": {Host: "maps.google.com", Convention: QueryParam},
	"google.com":      {Host: "google.com", Convention: QueryParam},

	// /u/<n> apps
	"mail.google.com":      {Host: "mail.google.com", Convention: PathSuffix, PathPrefix: "/mail"},
	"calendar.google.com":  {Host: "calendar.google.com", Convention: PathSuffix},
	"translate.google.com": {Host: "translate.google.com", Convention: PathSuffix},
	"drive.google.com":     {Host: "drive.google.com", Convention: PathSuffix, PathPrefix: "/drive"},
	"news.google.com":      {Host: "news.google.com", Convention: PathSuffix},
	"duo.google.com":       {Host: "duo.google.com", Convention: PathSuffix},
	"photos.google.com":    {Host: "photos.google.com", Convention: PathSuffix},
}

// Lookup returns the registered app for host.
func Lookup(host string) (App, bool) {
	app, ok := apps[host]
	return app, ok
}

// Apps returns a copy of the registry sorted by hostname.
func Apps() []App {
	list := make([]App, 0, len(apps))
	for _, app := range apps {
		list = append(list, app)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Host < list[j].Host
	})
	return list
}
