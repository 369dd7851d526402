package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		host       string
		convention Convention
		prefix     string
	}{
		{host: "meet.google.com", convention: QueryParam},
		{host: "maps.google.com", convention: QueryParam},
		{host: "google.com", convention: QueryParam},
		{host: "mail.google.com", convention: PathSuffix, prefix: "/mail"},
		{host: "calendar.google.com", convention: PathSuffix},
		{host: "translate.google.com", convention: PathSuffix},
		{host: "drive.google.com", convention: PathSuffix, prefix: "/drive"},
		{host: "news.google.com", convention: PathSuffix},
		{host: "duo.google.com", convention: PathSuffix},
		{host: "photos.google.com", convention: PathSuffix},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			app, ok := Lookup(tt.host)
			assert.True(t, ok)
			assert.Equal(t, tt.host, app.Host)
			assert.Equal(t, tt.convention, app.Convention)
			assert.Equal(t, tt.prefix, app.PathPrefix)
		})
	}

	assert.Len(t, Apps(), len(tests))
}

func TestLookup_Unknown(t *testing.T) {
	for _, host := range []string{"", "www.google.com", "docs.google.com", "google.co.uk", "mail.google.com.evil.com"} {
		_, ok := Lookup(host)
		assert.False(t, ok, "host %q should not be registered", host)
	}
}

func TestApps_SortedCopy(t *testing.T) {
	list := Apps()
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Host, list[i].Host)
	}

	list[0].PathPrefix = "/changed"
	again := Apps()
	assert.NotEqual(t, "/changed", again[0].PathPrefix)
}

func TestConvention_String(t *testing.T) {
	assert.Equal(t, "path_suffix", PathSuffix.String())
	assert.Equal(t, "query_param", QueryParam.String())
	assert.Equal(t, "unknown", Convention(9).String())
}

func TestIndex(t *testing.T) {
	assert.Equal(t, "0", Index(0).String())
	assert.Equal(t, "17", Index(17).String())
	assert.True(t, Index(0).Valid())
	assert.True(t, MaxIndex.Valid())
	assert.False(t, Index(-1).Valid())
	assert.False(t, Index(100).Valid())
}
