package services

import (
	"coldcall-api/internal/metrics"
	"coldcall-api/internal/models"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultProbeTimeout     = 5 * time.Second
	DefaultProbeConcurrency = 5
)

// WebsiteProbe decides whether business websites answer. Failures of any
// kind are reported as unreachable, never as errors.
type WebsiteProbe interface {
	Check(ctx context.Context, rawURL string) models.WebsiteStatus
	CheckAll(ctx context.Context, rows []models.ResultRow) []models.ResultRow
}

type ProbeOption func(*httpWebsiteProbe)

// WithProbeTimeout bounds each probe, including the GET fallback.
func WithProbeTimeout(timeout time.Duration) ProbeOption {
	return func(p *httpWebsiteProbe) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

func WithProbeConcurrency(n int) ProbeOption {
	return func(p *httpWebsiteProbe) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithProbeUserAgent(ua string) ProbeOption {
	return func(p *httpWebsiteProbe) {
		p.userAgent = ua
	}
}

func WithProbeMetrics(m *metrics.Metrics) ProbeOption {
	return func(p *httpWebsiteProbe) {
		p.metrics = m
	}
}

type httpWebsiteProbe struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	userAgent   string
	metrics     *metrics.Metrics
}

func NewWebsiteProbe(opts ...ProbeOption) WebsiteProbe {
	p := &httpWebsiteProbe{
		client: &http.Client{
			// A redirect already proves the site answers.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout:     DefaultProbeTimeout,
		concurrency: DefaultProbeConcurrency,
		userAgent:   "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check sends a HEAD request and falls back to GET when the server refuses
// HEAD. 2xx and 3xx answers count as live.
func (p *httpWebsiteProbe) Check(ctx context.Context, rawURL string) models.WebsiteStatus {
	status := p.check(ctx, rawURL)
	p.metrics.Probe(string(status))
	return status
}

func (p *httpWebsiteProbe) check(ctx context.Context, rawURL string) models.WebsiteStatus {
	target, ok := normalizeWebsiteURL(rawURL)
	if !ok {
		return models.WebsiteUnreachable
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	code, err := p.do(ctx, http.MethodHead, target)
	if err == nil && (code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented) {
		code, err = p.do(ctx, http.MethodGet, target)
	}
	if err != nil {
		return models.WebsiteUnreachable
	}
	if code >= 200 && code < 400 {
		return models.WebsiteLive
	}
	return models.WebsiteUnreachable
}

func (p *httpWebsiteProbe) do(ctx context.Context, method, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}

// CheckAll probes every row that has a website, at most concurrency at a
// time. The returned slice is a copy in the same order as rows.
func (p *httpWebsiteProbe) CheckAll(ctx context.Context, rows []models.ResultRow) []models.ResultRow {
	out := make([]models.ResultRow, len(rows))
	copy(out, rows)

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range out {
		i := i
		if !out[i].Business.HasWebsite() {
			out[i].Website = models.WebsiteUnchecked
			continue
		}
		g.Go(func() error {
			out[i].Website = p.Check(ctx, out[i].Business.Website)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// FilterLive keeps rows whose website probed live.
func FilterLive(rows []models.ResultRow) []models.ResultRow {
	out := make([]models.ResultRow, 0, len(rows))
	for _, r := range rows {
		if r.Website == models.WebsiteLive {
			out = append(out, r)
		}
	}
	return out
}

func normalizeWebsiteURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}
