package ipinfo

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	ipinfoio "github.com/ipinfo/go/v2/ipinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreToResult(t *testing.T) {
	res, ok := coreToResult(&ipinfoio.Core{
		IP:          net.ParseIP("8.8.8.8"),
		Country:     "US",
		CountryName: "United States",
		Region:      "California",
		City:        "Mountain View",
		Org:         "AS15169 Google LLC",
		Location:    "37.4056,-122.0775",
		Timezone:    "America/Los_Angeles",
	}, "8.8.8.8")
	require.True(t, ok)
	assert.Equal(t, "8.8.8.8", res.IP)
	assert.Equal(t, "United States", res.Country)
	assert.Equal(t, "California", res.Region)
	assert.Equal(t, "Mountain View", res.City)
	assert.Equal(t, "AS15169 Google LLC", res.ISP)
	assert.Equal(t, "America/Los_Angeles", res.TimeZone)
	assert.Equal(t, 37.4056, res.Latitude)
	assert.Equal(t, -122.0775, res.Longitude)

	res, ok = coreToResult(&ipinfoio.Core{Country: "JP"}, "1.1.1.1")
	require.True(t, ok)
	assert.Equal(t, "1.1.1.1", res.IP)
	assert.Equal(t, "JP", res.Country)
	assert.Equal(t, Unknown, res.City)

	_, ok = coreToResult(&ipinfoio.Core{Bogon: true}, "10.0.0.1")
	assert.False(t, ok)
	_, ok = coreToResult(nil, "10.0.0.1")
	assert.False(t, ok)
}

func TestParseLoc(t *testing.T) {
	lat, lon := parseLoc("1.5, 2.25")
	assert.Equal(t, 1.5, lat)
	assert.Equal(t, 2.25, lon)

	for _, bad := range []string{"", "1.5", "x,2", "1,y"} {
		lat, lon = parseLoc(bad)
		assert.Zero(t, lat, bad)
		assert.Zero(t, lon, bad)
	}
}

func TestRecordToResult(t *testing.T) {
	var rec cityRecord
	rec.Country.ISOCode = "CN"
	rec.Country.Names = map[string]string{"en": "China", "zh-CN": "中国"}
	rec.Subdivisions = []struct {
		Names map[string]string `maxminddb:"names"`
	}{{Names: map[string]string{"en": "Guangdong"}}}
	rec.Location.Latitude = 22.5
	rec.Location.Longitude = 114.1
	rec.Location.TimeZone = "Asia/Shanghai"

	res := recordToResult(rec, "1.2.3.4")
	assert.Equal(t, MaxMindName, res.Provider)
	assert.Equal(t, "中国", res.Country)
	assert.Equal(t, "Guangdong", res.Region)
	assert.Equal(t, Unknown, res.City)
	assert.Equal(t, Unknown, res.ISP)
	assert.Equal(t, "Asia/Shanghai", res.TimeZone)
	assert.Equal(t, 22.5, res.Latitude)

	var bare cityRecord
	bare.Country.ISOCode = "US"
	assert.Equal(t, "US", recordToResult(bare, "1.2.3.4").Country)
}

func TestNewMaxMindProvider_Nil(t *testing.T) {
	_, err := NewMaxMindProvider(nil, true)
	assert.Error(t, err)
}

// newIPInfoTestProvider 指向本地假服务的 ipinfo.io 数据源
func newIPInfoTestProvider(t *testing.T, srv *fakeProvider) *ipinfoProvider {
	t.Helper()
	u, err := url.Parse(srv.srv.URL + "/")
	require.NoError(t, err)
	p := NewIPInfoProvider("token", 5*time.Second).(*ipinfoProvider)
	p.baseURL = u
	return p
}

func TestIPInfoProvider_Lookup(t *testing.T) {
	srv := newFakeProvider(t, jsonHandler(`{"ip":"8.8.8.8","city":"Mountain View","region":"California","country":"US","loc":"37.4056,-122.0775","org":"AS15169 Google LLC","timezone":"America/Los_Angeles"}`))
	p := newIPInfoTestProvider(t, srv)

	c, err := New(WithProviders(p), WithUserAgent("ipquery-test/1.0"), WithLogger(discardLogger()))
	require.NoError(t, err)
	defer c.Close()

	res, err := c.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, IPInfoName, res.Provider)
	assert.Equal(t, "8.8.8.8", res.IP)
	assert.Contains(t, []string{"United States", "US"}, res.Country)
	assert.Equal(t, "California", res.Region)
	assert.Equal(t, "Mountain View", res.City)
	assert.Equal(t, "AS15169 Google LLC", res.ISP)
	assert.Equal(t, 37.4056, res.Latitude)

	req := srv.lastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "ipquery-test/1.0", req.Header.Get("User-Agent"))
	assert.True(t, strings.HasSuffix(req.URL.Path, "8.8.8.8"), req.URL.Path)
}

func TestIPInfoProvider_HonorsContext(t *testing.T) {
	srv := newFakeProvider(t, hangHandler)
	p := newIPInfoTestProvider(t, srv)

	c, err := New(WithProviders(p), WithTimeouts(time.Second, 100*time.Millisecond), WithLogger(discardLogger()))
	require.NoError(t, err)
	defer c.Close()

	start := time.Now()
	_, err = c.Lookup(context.Background(), "8.8.8.8")
	require.Error(t, err)
	assert.Equal(t, KindNetworkTimeout, KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestIPInfoProvider_ServerError(t *testing.T) {
	srv := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	p := newIPInfoTestProvider(t, srv)

	_, err := p.Lookup(context.Background(), "8.8.8.8")
	assert.Error(t, err)
}
