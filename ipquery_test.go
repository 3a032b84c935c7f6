package ipquery

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinspired/ipquery/pkg/ipinfo"
)

func newTestService(t *testing.T, aBody, bBody string) *Service {
	t.Helper()
	mk := func(body string) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		}))
		t.Cleanup(srv.Close)
		return srv
	}
	a, b := mk(aBody), mk(bBody)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cli, err := ipinfo.New(
		ipinfo.WithProviders(ipinfo.NewVmyProvider(a.URL), ipinfo.NewVvhanProvider(b.URL)),
		ipinfo.WithTimeouts(time.Second, 2*time.Second),
		ipinfo.WithLogger(logger),
	)
	require.NoError(t, err)

	svc := NewService(cli, logger)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestService_FallbackToSecondProvider(t *testing.T) {
	svc := newTestService(t,
		`{"code":404}`,
		`{"success":true,"ip":"8.8.8.8","info":{"country":"美国","prov":"加利福尼亚","city":"","isp":"Google"}}`)

	res, err := svc.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, ipinfo.VvhanName, res.Provider)
	assert.Equal(t, ipinfo.Unknown, res.City)

	replies := svc.HandleMessage(context.Background(), "ip 查询 8.8.8.8")
	require.Len(t, replies, 2)
	assert.Contains(t, replies[1], "🏳️ 国家：美国")
	assert.Contains(t, replies[1], "🏙️ 城市：未知")
	assert.Contains(t, replies[1], "📍 坐标：0, 0")
}

func TestService_HTTPAndMetrics(t *testing.T) {
	svc := newTestService(t,
		`{"code":200,"data":{"country":"中国","province":"北京","city":"北京","isp":"联通","latitude":"39.9","longitude":"116.4"}}`,
		`{"success":false}`)
	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/lookup/1.2.3.4")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"latitude":39.9`)
	assert.Contains(t, string(body), `"provider":"52vmy"`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `ipquery_plugin_lookups_total{outcome="ok",provider="52vmy"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestService_StatusAfterClose(t *testing.T) {
	svc := newTestService(t, `{}`, `{}`)

	st := svc.Status()
	assert.True(t, st.SessionOpen)
	assert.Equal(t, 2, st.ProviderCount)

	require.NoError(t, svc.Close())
	assert.False(t, svc.Status().SessionOpen)

	replies := svc.HandleMessage(context.Background(), "ip 状态")
	require.Len(t, replies, 1)
	assert.True(t, strings.Contains(replies[0], "会话状态: 已关闭"))
}

func TestValidateIP(t *testing.T) {
	assert.True(t, ValidateIP("8.8.8.8"))
	assert.True(t, ValidateIP("::1"))
	assert.False(t, ValidateIP("999.1.1.1"))
	assert.False(t, ValidateIP(""))
}
