package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"xray-ip-diag/internal/config"
	"xray-ip-diag/internal/domain"
)

const maxBodySize = 1 << 20

// Prober queries IP-geolocation endpoints through a Transport and stops at
// the first one that answers with a JSON document.
type Prober struct {
	transport Transport
	timeout   time.Duration
	pause     time.Duration
	metrics   domain.MetricsCollector
	logger    *zap.Logger
}

func NewProber(cfg *config.Config, transport Transport, metrics domain.MetricsCollector, logger *zap.Logger) *Prober {
	return &Prober{
		transport: transport,
		timeout:   cfg.Probe.Timeout,
		pause:     cfg.Probe.Pause,
		metrics:   metrics,
		logger:    logger.With(zap.String("component", "prober")),
	}
}

func (p *Prober) Proxied() bool {
	return p.transport.Proxied()
}

// Probe tries endpoints in order. Endpoint failures are recorded in the
// result and never abort the loop; only a cancelled ctx returns an error.
func (p *Prober) Probe(ctx context.Context, port int, endpoints []domain.Endpoint, observer domain.ProbeObserver) (*domain.ProbeResult, error) {
	result := &domain.ProbeResult{
		Proxied: p.transport.Proxied(),
	}

	client, err := p.transport.Client(port, p.timeout)
	if err != nil {
		return nil, domain.NewStepError(domain.KindProbe, "failed to create http client", err)
	}

	for i, endpoint := range endpoints {
		if i > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(p.pause):
			}
		}

		if observer != nil {
			observer.AttemptStarted(endpoint)
		}

		attempt, geo := p.attempt(ctx, client, endpoint)
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		result.Attempts = append(result.Attempts, attempt)
		if p.metrics != nil {
			p.metrics.RecordProbeAttempt(attempt)
		}
		if observer != nil {
			observer.AttemptFinished(attempt)
		}

		p.logger.Debug("probe attempt finished",
			zap.String("endpoint", endpoint.URL),
			zap.Int("status", attempt.StatusCode),
			zap.String("failure", string(attempt.Failure)),
			zap.Duration("duration", attempt.Duration))

		if attempt.Succeeded() {
			result.Success = true
			result.StatusCode = attempt.StatusCode
			result.Endpoint = endpoint
			result.Geo = geo
			break
		}
	}

	return result, nil
}

func (p *Prober) attempt(ctx context.Context, client *http.Client, endpoint domain.Endpoint) (domain.ProbeAttempt, domain.GeoInfo) {
	start := time.Now()
	attempt := domain.ProbeAttempt{Endpoint: endpoint}

	fail := func(err error) (domain.ProbeAttempt, domain.GeoInfo) {
		attempt.Failure, attempt.ErrorType = classify(err)
		attempt.Message = excerpt(err.Error(), messageExcerpt)
		attempt.Duration = time.Since(start)
		return attempt, domain.GeoInfo{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.URL, nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	attempt.StatusCode = resp.StatusCode
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fail(err)
	}

	if resp.StatusCode != http.StatusOK {
		attempt.Failure = domain.FailureBadStatus
		attempt.Message = excerpt(string(body), messageExcerpt)
		attempt.Duration = time.Since(start)
		return attempt, domain.GeoInfo{}
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		attempt.Failure = domain.FailureBadBody
		attempt.Message = excerpt(fmt.Sprintf("invalid JSON: %v", err), messageExcerpt)
		attempt.Duration = time.Since(start)
		return attempt, domain.GeoInfo{}
	}

	attempt.Duration = time.Since(start)
	return attempt, extractGeo(data)
}

func extractGeo(data map[string]interface{}) domain.GeoInfo {
	return domain.GeoInfo{
		IP:       field(data, "ip"),
		Country:  field(data, "country"),
		City:     field(data, "city"),
		ISP:      field(data, "isp", "organization"),
		Timezone: field(data, "timezone"),
	}
}

// field returns the first present, non-empty key rendered as text.
func field(data map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		value, ok := data[key]
		if !ok || value == nil {
			continue
		}
		if text := fmt.Sprint(value); text != "" {
			return text
		}
	}
	return domain.NotAvailable
}
