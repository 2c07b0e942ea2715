package proxyfinder

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHarvester() *Harvester {
	h := NewHarvester(2 * time.Second)
	h.text = map[string]string{}
	h.apis = nil
	h.html = map[string]string{}
	return h
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchText_ParsesAndPrefixes(t *testing.T) {
	srv := serve(t, 200, "1.2.3.4:8080\n# a comment\n\n5.6.7.8:3128 US elite\nnot-an-address\n")

	h := newTestHarvester()
	got := h.fetchText("monosans_http", srv.URL)

	require.Equal(t, 2, got)
	require.Len(t, h.records, 2)
	assert.Equal(t, "http://1.2.3.4:8080", h.records[0].Proxy)
	assert.Equal(t, "http://5.6.7.8:3128", h.records[1].Proxy)
	assert.Equal(t, "monosans_http", h.records[0].Source)
}

func TestFetchText_SchemeFromSourceName(t *testing.T) {
	srv := serve(t, 200, "1.2.3.4:1080\nsocks4://9.9.9.9:1080\n")

	h := newTestHarvester()
	h.fetchText("jetkai_socks5", srv.URL)

	require.Len(t, h.records, 2)
	assert.Equal(t, "socks5://1.2.3.4:1080", h.records[0].Proxy)
	// An explicit scheme on the line always wins over the source name.
	assert.Equal(t, "socks4://9.9.9.9:1080", h.records[1].Proxy)
}

func TestFetchText_NonOKIgnored(t *testing.T) {
	srv := serve(t, 503, "1.2.3.4:8080\n")

	h := newTestHarvester()
	assert.Equal(t, 0, h.fetchText("clarketm", srv.URL))
	assert.Empty(t, h.records)
}

func TestFetchAPI_GeonodeJSON(t *testing.T) {
	srv := serve(t, 200, `{"data":[
		{"ip":"9.9.9.9","port":"3128","protocols":["http","socks5"]},
		{"ip":"8.8.8.8","port":4145,"protocols":[]},
		{"ip":"","port":"80"}
	]}`)

	h := newTestHarvester()
	got := h.fetchAPI(srv.URL)

	require.Equal(t, 3, got)
	addrs := []string{h.records[0].Proxy, h.records[1].Proxy, h.records[2].Proxy}
	assert.Equal(t, []string{"http://9.9.9.9:3128", "socks5://9.9.9.9:3128", "http://8.8.8.8:4145"}, addrs)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, u.Host, h.records[0].Source)
}

func TestFetchAPI_PlainTextFallback(t *testing.T) {
	srv := serve(t, 200, "7.7.7.7:80\n6.6.6.6:8080\n")

	h := newTestHarvester()
	got := h.fetchAPI(srv.URL)

	require.Equal(t, 2, got)
	assert.Equal(t, "http://7.7.7.7:80", h.records[0].Proxy)
}

func TestFetchHTML_TableRows(t *testing.T) {
	srv := serve(t, 200, `<html><body><table>
		<thead><tr><th>IP</th><th>Port</th></tr></thead>
		<tbody>
			<tr><td>10.0.0.1</td><td>8080</td><td>US</td></tr>
			<tr><td>10.0.0.2</td><td>3128</td></tr>
			<tr><td colspan="2">ads go here</td></tr>
		</tbody>
	</table></body></html>`)

	h := newTestHarvester()
	got := h.fetchHTML("free_proxy_list", srv.URL)

	require.Equal(t, 2, got)
	assert.Equal(t, "http://10.0.0.1:8080", h.records[0].Proxy)
	assert.Equal(t, "http://10.0.0.2:3128", h.records[1].Proxy)
}

func TestHarvest_DedupesAcrossSources(t *testing.T) {
	body := "1.2.3.4:8080\n"
	first := serve(t, 200, body)
	second := serve(t, 200, body+"5.6.7.8:80\n")

	h := newTestHarvester()
	h.text = map[string]string{
		"source_a": first.URL,
		"source_b": second.URL,
	}

	records := h.Harvest(4)

	require.Len(t, records, 2)
	seen := map[string]bool{}
	for _, rec := range records {
		seen[rec.Proxy] = true
	}
	assert.True(t, seen["http://1.2.3.4:8080"])
	assert.True(t, seen["http://5.6.7.8:80"])
}

func TestSchemeFor(t *testing.T) {
	assert.Equal(t, "socks5", schemeFor("monosans_socks5"))
	assert.Equal(t, "socks4", schemeFor("vakhov_socks4"))
	assert.Equal(t, "https", schemeFor("jetkai_https"))
	assert.Equal(t, "http", schemeFor("TheSpeedX"))
}
