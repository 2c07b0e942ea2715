package proxyfinder

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/models"
)

// newTestVerifier points both probes at test servers and swaps the client
// factory for one that ignores the proxy address, so classification logic
// is exercised without a real proxy in the middle.
func newTestVerifier(basicURL, targetURL string) *Verifier {
	v := NewVerifier(2*time.Second, 2*time.Second)
	v.basicURL = basicURL
	v.targetURL = targetURL
	v.newClient = func(_ string, timeout time.Duration) (*http.Client, error) {
		return &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}, nil
	}
	return v
}

func okBasic(t *testing.T) *httptest.Server {
	return serve(t, 200, `{"origin":"1.2.3.4"}`)
}

func candidate() models.ProxyRecord {
	return models.ProxyRecord{Proxy: "http://1.2.3.4:8080", Source: "test"}
}

func TestTestOne_Success(t *testing.T) {
	target := serve(t, 200, `<html><title>X</title><a href="/login">Log in</a></html>`)
	v := newTestVerifier(okBasic(t).URL, target.URL)

	rec := v.testOne(candidate())

	assert.True(t, rec.Working)
	assert.True(t, rec.WorksOnTarget)
	assert.Equal(t, "success", rec.TargetStatus)
	assert.Less(t, rec.Speed, 999.0)
	assert.False(t, rec.TestedAt.IsZero())
}

func TestTestOne_BlockedPage(t *testing.T) {
	target := serve(t, 200, "access denied by upstream gateway")
	v := newTestVerifier(okBasic(t).URL, target.URL)

	rec := v.testOne(candidate())

	assert.True(t, rec.Working)
	assert.False(t, rec.WorksOnTarget)
	assert.Equal(t, "blocked_page", rec.TargetStatus)
}

func TestTestOne_RedirectOK(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://x.com/?mx=2")
		w.WriteHeader(http.StatusFound)
	}))
	t.Cleanup(target.Close)
	v := newTestVerifier(okBasic(t).URL, target.URL)

	rec := v.testOne(candidate())

	assert.True(t, rec.WorksOnTarget)
	assert.Equal(t, "redirect_ok", rec.TargetStatus)
}

func TestTestOne_StatusVocabulary(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{403, "forbidden"},
		{429, "rate_limited"},
		{503, "http_503"},
	}
	for _, tc := range cases {
		target := serve(t, tc.status, "")
		v := newTestVerifier(okBasic(t).URL, target.URL)

		rec := v.testOne(candidate())

		assert.Equal(t, tc.want, rec.TargetStatus)
		assert.False(t, rec.WorksOnTarget)
		// The basic probe passed, so the candidate still counts as routing.
		assert.True(t, rec.Working)
	}
}

func TestTestOne_BasicProbeFailure(t *testing.T) {
	basic := serve(t, 502, "")
	v := newTestVerifier(basic.URL, okBasic(t).URL)

	rec := v.testOne(candidate())

	assert.False(t, rec.Working)
	assert.Equal(t, "basic_failed_502", rec.TargetStatus)
	assert.Equal(t, 999.0, rec.Speed)
}

func TestTestOne_SkipsSocks(t *testing.T) {
	v := newTestVerifier("http://unused.invalid", "http://unused.invalid")
	v.newClient = func(string, time.Duration) (*http.Client, error) {
		t.Fatal("socks candidates must never be probed")
		return nil, nil
	}

	rec := v.testOne(models.ProxyRecord{Proxy: "socks5://1.2.3.4:1080"})

	assert.Equal(t, "skipped_socks", rec.TargetStatus)
	assert.False(t, rec.Working)
}

func TestTestOne_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(slow.Close)

	v := newTestVerifier(slow.URL, slow.URL)
	v.basicTimeout = 30 * time.Millisecond
	v.newClient = func(_ string, timeout time.Duration) (*http.Client, error) {
		return &http.Client{Timeout: timeout}, nil
	}

	rec := v.testOne(candidate())

	assert.Equal(t, "timeout", rec.TargetStatus)
}

func TestVerifyAll_FiltersFailures(t *testing.T) {
	target := serve(t, 200, `<html><title>X</title><a href="/login">Log in</a></html>`)
	v := newTestVerifier(okBasic(t).URL, target.URL)

	records := []models.ProxyRecord{
		{Proxy: "http://1.1.1.1:80"},
		{Proxy: "socks5://2.2.2.2:1080"},
		{Proxy: "http://3.3.3.3:80"},
	}
	working := v.VerifyAll(records, 2)

	require.Len(t, working, 2)
	for _, rec := range working {
		assert.True(t, rec.WorksOnTarget)
		assert.Equal(t, "success", rec.TargetStatus)
	}
}

func TestSortBySpeed(t *testing.T) {
	records := []models.ProxyRecord{
		{Proxy: "c", Speed: 3.2},
		{Proxy: "a", Speed: 0.4},
		{Proxy: "b", Speed: 1.1},
	}
	sortBySpeed(records)

	assert.Equal(t, "a", records[0].Proxy)
	assert.Equal(t, "b", records[1].Proxy)
	assert.Equal(t, "c", records[2].Proxy)
}

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "context deadline exceeded" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	assert.Equal(t, "timeout", classify(fakeTimeoutErr{}))
	assert.Equal(t, "proxy_error", classify(errors.New(`proxyconnect tcp: dial tcp 1.2.3.4:8080: connection refused`)))
	assert.Equal(t, "connection_error", classify(errors.New("EOF")))
}
