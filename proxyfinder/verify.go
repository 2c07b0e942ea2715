package proxyfinder

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"xscraper/httputil"
	"xscraper/logging"
	"xscraper/models"
)

const (
	basicProbeURL  = "http://httpbin.org/ip"
	targetProbeURL = "https://x.com"

	// A proxy that returns this much of the real page is enough to judge
	// it; the rest is not worth the bandwidth times ten thousand proxies.
	maxProbeBody = 256 << 10
)

// Verifier probes each candidate twice: once against a neutral echo host
// to prove the proxy routes traffic at all, then against x.com to prove
// the proxy is not already burned there. Only candidates passing both
// probes are kept.
type Verifier struct {
	log           zerolog.Logger
	basicTimeout  time.Duration
	targetTimeout time.Duration

	basicURL  string
	targetURL string
	newClient func(proxyAddr string, timeout time.Duration) (*http.Client, error)
}

func NewVerifier(basicTimeout, targetTimeout time.Duration) *Verifier {
	return &Verifier{
		log:           logging.Component("verify"),
		basicTimeout:  basicTimeout,
		targetTimeout: targetTimeout,
		basicURL:      basicProbeURL,
		targetURL:     targetProbeURL,
		newClient:     httputil.Proxied,
	}
}

// testOne enriches one record with its verification outcome. It never
// returns an error; failure modes land in TargetStatus.
func (v *Verifier) testOne(rec models.ProxyRecord) models.ProxyRecord {
	rec.Working = false
	rec.WorksOnTarget = false
	rec.Speed = 999
	rec.TargetStatus = "not_tested"
	rec.TestedAt = time.Now()

	// Browser contexts take HTTP proxies only, so socks candidates are
	// dead weight even when they route fine.
	if strings.HasPrefix(rec.Proxy, "socks4://") || strings.HasPrefix(rec.Proxy, "socks5://") {
		rec.TargetStatus = "skipped_socks"
		return rec
	}

	client, err := v.newClient(rec.Proxy, v.basicTimeout)
	if err != nil {
		rec.TargetStatus = "proxy_error"
		return rec
	}

	start := time.Now()
	resp, err := v.get(client, v.basicURL)
	if err != nil {
		rec.TargetStatus = classify(err)
		return rec
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		rec.TargetStatus = fmt.Sprintf("basic_failed_%d", resp.StatusCode)
		return rec
	}
	rec.Working = true
	rec.Speed = round3(time.Since(start).Seconds())

	client, err = v.newClient(rec.Proxy, v.targetTimeout)
	if err != nil {
		rec.TargetStatus = "proxy_error"
		return rec
	}

	start = time.Now()
	resp, err = v.get(client, v.targetURL)
	if err != nil {
		rec.TargetStatus = classify(err)
		return rec
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	resp.Body.Close()
	elapsed := round3(time.Since(start).Seconds())

	switch resp.StatusCode {
	case http.StatusOK:
		lower := strings.ToLower(string(body))
		if strings.Contains(lower, "x.com") || strings.Contains(lower, "twitter") || strings.Contains(lower, "login") {
			rec.WorksOnTarget = true
			rec.TargetStatus = "success"
			rec.Speed = elapsed
		} else {
			// 200 with none of the expected markers is an interstitial
			// or a proxy ad page.
			rec.TargetStatus = "blocked_page"
		}
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
		// A clean redirect means the proxy passes traffic through.
		rec.WorksOnTarget = true
		rec.TargetStatus = "redirect_ok"
		rec.Speed = elapsed
	case http.StatusForbidden:
		rec.TargetStatus = "forbidden"
	case http.StatusTooManyRequests:
		rec.TargetStatus = "rate_limited"
	default:
		rec.TargetStatus = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	return rec
}

// VerifyAll probes every candidate with bounded workers and returns the
// passing set sorted fastest first.
func (v *Verifier) VerifyAll(records []models.ProxyRecord, workers int) []models.ProxyRecord {
	if workers < 1 {
		workers = 1
	}
	total := len(records)
	estimate := float64(total) * v.targetTimeout.Seconds() / float64(workers) / 60
	v.log.Info().Msgf("Testing %d proxies with %d workers (worst case ~%.1f min)...", total, workers, estimate)

	var (
		mu        sync.Mutex
		working   []models.ProxyRecord
		completed int
	)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, rec := range records {
		rec := rec
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			result := v.testOne(rec)

			mu.Lock()
			defer mu.Unlock()
			completed++
			if result.WorksOnTarget {
				working = append(working, result)
				v.log.Info().Msgf("[%d/%d]  PASS  %-45s  %.2fs  [%s]",
					completed, total, result.Proxy, result.Speed, result.TargetStatus)
			} else if completed%250 == 0 {
				v.log.Info().Msgf("[%d/%d] tested | %d working so far...", completed, total, len(working))
			}
		}()
	}
	wg.Wait()

	sortBySpeed(working)

	pct := float64(len(working)) / math.Max(float64(total), 1) * 100
	v.log.Info().Msgf("Verify done: %d/%d proxies pass (%.1f%%)", len(working), total, pct)
	return working
}

func (v *Verifier) get(client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", verifyAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return client.Do(req)
}

// classify maps a probe error onto the status vocabulary the output file
// carries.
func classify(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if strings.Contains(err.Error(), "proxyconnect") {
		return "proxy_error"
	}
	return "connection_error"
}

func sortBySpeed(records []models.ProxyRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Speed < records[j].Speed
	})
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
