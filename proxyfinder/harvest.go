package proxyfinder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"xscraper/logging"
	"xscraper/models"
)

// Harvester pulls candidate proxies from every configured source at once
// and dedupes them globally by full address. First source to report an
// address owns it.
type Harvester struct {
	log    zerolog.Logger
	client *resty.Client

	text map[string]string
	apis []string
	html map[string]string

	mu      sync.Mutex
	seen    map[string]struct{}
	records []models.ProxyRecord
}

func NewHarvester(fetchTimeout time.Duration) *Harvester {
	client := resty.New()
	client.SetTimeout(fetchTimeout)
	client.SetHeader("User-Agent", harvestAgent)

	return &Harvester{
		log:    logging.Component("harvest"),
		client: client,
		text:   textSources,
		apis:   apiSources,
		html:   htmlSources,
		seen:   make(map[string]struct{}),
	}
}

func (h *Harvester) add(addr, source string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.seen[addr]; dup {
		return false
	}
	h.seen[addr] = struct{}{}
	h.records = append(h.records, models.ProxyRecord{Proxy: addr, Source: source})
	return true
}

// Harvest fires every source fetch concurrently, bounded by workers, and
// returns the deduplicated candidate list.
func (h *Harvester) Harvest(workers int) []models.ProxyRecord {
	if workers < 1 {
		workers = 1
	}
	h.log.Info().Msgf("Harvesting %d text sources + %d APIs + %d HTML tables...",
		len(h.text), len(h.apis), len(h.html))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	run := func(fetch func()) {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fetch()
		}()
	}

	for name, src := range h.text {
		name, src := name, src
		run(func() { h.fetchText(name, src) })
	}
	for _, src := range h.apis {
		src := src
		run(func() { h.fetchAPI(src) })
	}
	for name, src := range h.html {
		name, src := name, src
		run(func() { h.fetchHTML(name, src) })
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.log.Info().Msgf("Harvest done: %d unique proxies", len(h.records))
	return h.records
}

// fetchText parses a raw ip:port list. Lines may carry extra tokens after
// the address and may or may not include a scheme.
func (h *Harvester) fetchText(name, src string) int {
	resp, err := h.client.R().Get(src)
	if err != nil {
		h.log.Debug().Err(err).Msgf("%s failed", name)
		return 0
	}
	if resp.StatusCode() != 200 {
		return 0
	}

	count := 0
	for _, line := range strings.Split(strings.TrimSpace(resp.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw := strings.Fields(line)[0]
		if !strings.Contains(raw, ":") {
			continue
		}
		if !hasScheme(raw) {
			raw = schemeFor(name) + "://" + raw
		}
		if h.add(raw, name) {
			count++
		}
	}
	h.log.Info().Msgf("%s: %d proxies", name, count)
	return count
}

// geonodeList is the JSON shape the geonode API answers with. Port arrives
// as a string there but other mirrors send numbers, hence the any.
type geonodeList struct {
	Data []struct {
		IP        string   `json:"ip"`
		Port      any      `json:"port"`
		Protocols []string `json:"protocols"`
	} `json:"data"`
}

// fetchAPI handles the JSON APIs and falls back to plain-text parsing when
// the body is not JSON.
func (h *Harvester) fetchAPI(src string) int {
	host := src
	if u, err := url.Parse(src); err == nil {
		host = u.Host
	}

	resp, err := h.client.R().Get(src)
	if err != nil {
		h.log.Debug().Err(err).Msgf("API %s failed", host)
		return 0
	}
	if resp.StatusCode() != 200 {
		return 0
	}

	count := 0
	var doc geonodeList
	if err := json.Unmarshal(resp.Body(), &doc); err == nil && len(doc.Data) > 0 {
		for _, item := range doc.Data {
			port := portString(item.Port)
			if item.IP == "" || port == "" {
				continue
			}
			protocols := item.Protocols
			if len(protocols) == 0 {
				protocols = []string{"http"}
			}
			for _, proto := range protocols {
				if h.add(fmt.Sprintf("%s://%s:%s", proto, item.IP, port), host) {
					count++
				}
			}
		}
	} else {
		for _, line := range strings.Split(strings.TrimSpace(resp.String()), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || !strings.Contains(line, ":") {
				continue
			}
			if !hasScheme(line) {
				line = schemeFor(src) + "://" + line
			}
			if h.add(line, host) {
				count++
			}
		}
	}
	h.log.Info().Msgf("API %s: %d proxies", host, count)
	return count
}

// fetchHTML scrapes an IP/port table. Only the first two columns matter;
// rows that do not look like an address are skipped.
func (h *Harvester) fetchHTML(name, src string) int {
	resp, err := h.client.R().Get(src)
	if err != nil {
		h.log.Debug().Err(err).Msgf("%s failed", name)
		return 0
	}
	if resp.StatusCode() != 200 {
		return 0
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		h.log.Debug().Err(err).Msgf("%s: unparsable page", name)
		return 0
	}

	count := 0
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if ip == "" || port == "" || !strings.Contains(ip, ".") {
			return
		}
		if h.add("http://"+ip+":"+port, name) {
			count++
		}
	})
	h.log.Info().Msgf("%s: %d proxies", name, count)
	return count
}

func hasScheme(addr string) bool {
	for _, scheme := range []string{"http://", "https://", "socks4://", "socks5://"} {
		if strings.HasPrefix(addr, scheme) {
			return true
		}
	}
	return false
}

func portString(v any) string {
	switch p := v.(type) {
	case string:
		return p
	case float64:
		return strconv.Itoa(int(p))
	default:
		return ""
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}
