package proxypool

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"xscraper/errs"
	"xscraper/logging"
	"xscraper/models"
)

// Pool hands out proxy endpoints exactly once per run. A checked-out
// endpoint is never re-queued, success or failure; retry policy belongs
// to the finder pipeline, not here.
type Pool struct {
	log zerolog.Logger

	mu     sync.Mutex
	arena  []*models.ProxyEndpoint
	byAddr map[string]int

	avail chan int
}

// Load reads the persisted proxy list written by the finder. A missing
// or unparsable file is a configuration error.
func Load(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, fmt.Sprintf("proxy list %s", path), err)
	}

	var records []models.ProxyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, fmt.Sprintf("proxy list %s", path), err)
	}

	return New(records), nil
}

func New(records []models.ProxyRecord) *Pool {
	p := &Pool{
		log:    logging.Component("proxypool"),
		byAddr: make(map[string]int, len(records)),
		avail:  make(chan int, len(records)),
	}

	for _, r := range records {
		if r.Proxy == "" {
			continue
		}
		if _, dup := p.byAddr[r.Proxy]; dup {
			continue
		}
		idx := len(p.arena)
		p.arena = append(p.arena, &models.ProxyEndpoint{
			Address: r.Proxy,
			Source:  r.Source,
			Speed:   r.Speed,
		})
		p.byAddr[r.Proxy] = idx
		p.avail <- idx
	}

	p.log.Info().Int("endpoints", len(p.arena)).Msg("proxy pool loaded")
	return p
}

// Checkout removes and returns one endpoint. The second return is false
// when the pool is exhausted; callers must not block waiting for more.
func (p *Pool) Checkout() (*models.ProxyEndpoint, bool) {
	select {
	case idx := <-p.avail:
		p.mu.Lock()
		ep := p.arena[idx]
		ep.Consumed = true
		p.mu.Unlock()
		return ep, true
	default:
		return nil, false
	}
}

// Record stores the outcome for a consumed endpoint. Unknown addresses
// are ignored.
func (p *Pool) Record(address string, success bool, records int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.byAddr[address]
	if !ok {
		return
	}

	ep := p.arena[idx]
	ep.Succeeded = success
	ep.Records = records
	ep.Elapsed = elapsed
}

func (p *Pool) Remaining() int {
	return len(p.avail)
}

func (p *Pool) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.arena)
}

// Summary renders the pool's aggregate outcome. Only endpoints with recorded
// elapsed time count as tested sessions; an open failure is recorded with
// zero elapsed and stays out of the tally.
func (p *Pool) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var used, succeeded, records int
	for _, ep := range p.arena {
		if ep.Elapsed <= 0 {
			continue
		}
		used++
		records += ep.Records
		if ep.Succeeded {
			succeeded++
		}
	}
	return fmt.Sprintf("%d proxies | %d/%d sessions ok | %d raw posts",
		len(p.arena), succeeded, used, records)
}

// PlaywrightProxy converts an endpoint address into browser proxy
// settings, splitting out embedded credentials.
func PlaywrightProxy(ep *models.ProxyEndpoint) (*playwright.Proxy, error) {
	u, err := url.Parse(ep.Address)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %s: %w", ep.Address, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy %s: missing scheme or host", ep.Address)
	}

	proxy := &playwright.Proxy{
		Server: u.Scheme + "://" + u.Host,
	}
	if u.User != nil {
		username := u.User.Username()
		proxy.Username = playwright.String(username)
		if password, ok := u.User.Password(); ok {
			proxy.Password = playwright.String(password)
		}
	}
	return proxy, nil
}
