package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rankitpro/review-followup/internal/model"
	"github.com/rankitpro/review-followup/pkg/logger"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

var (
	ErrNoAvailableProviders = errors.New("no available providers")
)

type DeliveryStatus string

const (
	StatusAccepted DeliveryStatus = "ACCEPTED"
	StatusRejected DeliveryStatus = "REJECTED"
)

type SendRequest struct {
	MessageID string        `json:"message_id"`
	Channel   model.Channel `json:"channel"`
	To        string        `json:"to"`
	Subject   string        `json:"subject,omitempty"`
	Body      string        `json:"body"`
}

type SendResponse struct {
	MessageID         string         `json:"message_id"`
	Status            DeliveryStatus `json:"status"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	ErrorCode         string         `json:"error_code,omitempty"`
	ErrorMsg          string         `json:"error_message,omitempty"`
	ProcessedAt       time.Time      `json:"processed_at"`

	// Provider is the name of the provider that answered, set by the client.
	Provider string `json:"-"`
}

type Config struct {
	Providers               []ProviderConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	ReadBufferSize          int
	WriteBufferSize         int
	HealthCheckInterval     time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	Rate                    float64
	Burst                   int

	// Dial overrides the network dialer of every provider client.
	Dial fasthttp.DialFunc
}

type ProviderConfig struct {
	Name    string
	URL     string
	Channel model.Channel
	Weight  int
}

// ProvidersFromURLs names one provider per url as "{channel}-{n}".
func ProvidersFromURLs(channel model.Channel, urls []string) []ProviderConfig {
	out := make([]ProviderConfig, 0, len(urls))
	for i, u := range urls {
		out = append(out, ProviderConfig{
			Name:    fmt.Sprintf("%s-%d", channel, i+1),
			URL:     u,
			Channel: channel,
			Weight:  100 - i,
		})
	}
	return out
}

// Client sends rendered follow-up messages through the best scoring
// provider of the requested channel, failing over between providers.
type Client struct {
	config    *Config
	providers map[model.Channel][]*Provider
	mu        sync.RWMutex
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if len(config.Providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	if config.HealthCheckInterval <= 0 {
		config.HealthCheckInterval = 30 * time.Second
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = 5
	}

	client := &Client{
		config:    config,
		providers: make(map[model.Channel][]*Provider),
		stopCh:    make(chan struct{}),
	}

	for _, pc := range config.Providers {
		if !pc.Channel.Valid() {
			return nil, errors.Errorf("provider %s has unknown channel %q", pc.Name, pc.Channel)
		}
		httpClient := &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
			ReadBufferSize:      config.ReadBufferSize,
			WriteBufferSize:     config.WriteBufferSize,
			Dial:                config.Dial,
		}

		var limiter *rate.Limiter
		if config.Rate > 0 {
			burst := config.Burst
			if burst < 1 {
				burst = 1
			}
			limiter = rate.NewLimiter(rate.Limit(config.Rate), burst)
		}

		provider := NewProvider(pc.Name, pc.URL, pc.Channel, pc.Weight, httpClient, limiter)
		client.providers[pc.Channel] = append(client.providers[pc.Channel], provider)

		logger.Info("Provider initialized", "name", pc.Name, "url", pc.URL, "channel", pc.Channel, "weight", pc.Weight)
	}

	client.wg.Add(2)
	go client.healthChecker()
	go client.metricsCollector()

	logger.Info("Dispatch client initialized", "email_providers", len(client.providers[model.ChannelEmail]), "sms_providers", len(client.providers[model.ChannelSMS]), "timeout", config.Timeout)

	return client, nil
}

// SelectBestProvider returns the available provider of channel with the highest score.
func (c *Client) SelectBestProvider(channel model.Channel) (*Provider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *Provider
	var bestScore float64
	for _, provider := range c.providers[channel] {
		if !provider.IsAvailable() {
			continue
		}
		score := provider.CalculateScore()
		if score > bestScore {
			bestScore = score
			best = provider
		}
	}

	if best == nil {
		return nil, ErrNoAvailableProviders
	}

	logger.Debug("Selected provider", "provider", best.name, "channel", channel, "score", bestScore)
	return best, nil
}

// Send delivers req through its channel. Every error returned is a
// *model.DispatchFailure.
func (c *Client) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, &model.DispatchFailure{Channel: req.Channel, Reason: "marshal request: " + err.Error()}
	}

	path := fmt.Sprintf("/api/v1/%s/send", req.Channel)
	var lastErr error
	lastProvider := ""

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &model.DispatchFailure{Channel: req.Channel, Provider: lastProvider, Reason: ctx.Err().Error(), Retryable: true}
			case <-time.After(c.config.RetryDelay):
			}
		}

		provider, err := c.SelectBestProvider(req.Channel)
		if err != nil {
			lastErr = err
			continue
		}
		lastProvider = provider.name

		if err := provider.wait(ctx); err != nil {
			return nil, &model.DispatchFailure{Channel: req.Channel, Provider: provider.name, Reason: "rate limit: " + err.Error(), Retryable: true}
		}

		start := time.Now()
		body, err := c.doRequest(ctx, provider, fasthttp.MethodPost, path, reqBody)
		latency := time.Since(start).Milliseconds()

		if err != nil {
			provider.metrics.RecordFailure()
			c.checkCircuitBreaker(provider)
			logger.Warn("Provider request failed, retrying", "error", err, "provider", provider.name, "channel", req.Channel, "attempt", attempt+1)
			lastErr = err
			continue
		}

		provider.metrics.RecordSuccess(latency)

		var resp SendResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &model.DispatchFailure{Channel: req.Channel, Provider: provider.name, Reason: "unmarshal response: " + err.Error(), Retryable: true}
		}
		resp.Provider = provider.name

		if resp.Status != StatusAccepted {
			logger.Warn("Provider rejected message", "message_id", req.MessageID, "provider", provider.name, "status", string(resp.Status), "error_code", resp.ErrorCode)
			return &resp, &model.DispatchFailure{
				Channel:  req.Channel,
				Provider: provider.name,
				Reason:   fmt.Sprintf("provider status %s: %s %s", resp.Status, resp.ErrorCode, resp.ErrorMsg),
			}
		}

		logger.Info("Message accepted by provider", "message_id", req.MessageID, "channel", req.Channel, "provider", provider.name, "latency_ms", latency)
		return &resp, nil
	}

	reason := "no attempt made"
	if lastErr != nil {
		reason = fmt.Sprintf("failed after %d attempts: %v", c.config.MaxRetries+1, lastErr)
	}
	return nil, &model.DispatchFailure{Channel: req.Channel, Provider: lastProvider, Reason: reason, Retryable: true}
}

func (c *Client) doRequest(ctx context.Context, provider *Provider, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.url + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := provider.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, errors.Wrap(err, "request failed")
	}

	statusCode := resp.StatusCode()
	if statusCode != fasthttp.StatusOK && statusCode != fasthttp.StatusAccepted {
		return nil, errors.Errorf("unexpected status code: %d, body: %s", statusCode, resp.Body())
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}

func (c *Client) checkCircuitBreaker(provider *Provider) {
	fails := provider.metrics.ConsecutiveFails.Load()
	if fails >= int32(c.config.CircuitBreakerThreshold) {
		provider.SetState(StateCircuitOpen)
		provider.circuitOpenUntil.Store(time.Now().Add(c.config.CircuitBreakerTimeout).Unix())
		logger.Warn("Circuit breaker opened", "provider", provider.name, "consecutive_fails", fails, "timeout", c.config.CircuitBreakerTimeout)
	}
}

func (c *Client) allProviders() []*Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Provider, 0)
	for _, ch := range model.AllChannels {
		out = append(out, c.providers[ch]...)
	}
	return out
}

func (c *Client) healthChecker() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.performHealthChecks()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) performHealthChecks() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	for _, provider := range c.allProviders() {
		healthy := c.checkProviderHealth(ctx, provider)
		provider.lastHealthCheck.Store(time.Now().Unix())

		oldState := provider.GetState()
		newState := oldState
		if healthy {
			if oldState == StateUnhealthy || oldState == StateDegraded {
				newState = StateHealthy
			}
		} else if oldState != StateCircuitOpen {
			newState = StateUnhealthy
		}

		if newState != oldState {
			provider.SetState(newState)
			logger.Info("Provider state changed", "provider", provider.name, "old_state", oldState.String(), "new_state", newState.String())
		}
	}
}

func (c *Client) checkProviderHealth(ctx context.Context, provider *Provider) bool {
	body, err := c.doRequest(ctx, provider, fasthttp.MethodGet, "/health", nil)
	if err != nil {
		return false
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return false
	}
	return health.Status == "healthy"
}

func (c *Client) metricsCollector() {
	defer c.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evaluateProviders()
		case <-c.stopCh:
			return
		}
	}
}

// evaluateProviders moves providers between healthy and degraded from
// their observed success rate and latency.
func (c *Client) evaluateProviders() {
	for _, provider := range c.allProviders() {
		if provider.GetState() == StateCircuitOpen {
			continue
		}

		successRate := provider.metrics.SuccessRate()
		avgLatency := provider.metrics.AvgLatencyMs()

		if successRate < 0.8 || avgLatency > 5000 {
			if provider.GetState() != StateDegraded {
				provider.SetState(StateDegraded)
				logger.Warn("Provider degraded", "provider", provider.name, "success_rate", successRate, "avg_latency_ms", avgLatency)
			}
		} else if successRate > 0.95 && avgLatency < 2000 {
			if provider.GetState() != StateHealthy {
				provider.SetState(StateHealthy)
				logger.Info("Provider recovered to healthy state", "provider", provider.name)
			}
		}
	}
}

func (c *Client) GetProviderStats() []ProviderStats {
	providers := c.allProviders()
	stats := make([]ProviderStats, 0, len(providers))
	for _, p := range providers {
		stats = append(stats, ProviderStats{
			Name:             p.name,
			URL:              p.url,
			Channel:          p.channel,
			State:            p.GetState().String(),
			Score:            p.CalculateScore(),
			TotalRequests:    p.metrics.TotalRequests.Load(),
			SuccessfulReqs:   p.metrics.SuccessfulReqs.Load(),
			FailedReqs:       p.metrics.FailedReqs.Load(),
			SuccessRate:      p.metrics.SuccessRate(),
			AvgLatencyMs:     p.metrics.AvgLatencyMs(),
			P95LatencyMs:     p.metrics.P95LatencyMs(),
			LastLatencyMs:    p.metrics.LastLatencyMs.Load(),
			ConsecutiveFails: p.metrics.ConsecutiveFails.Load(),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Score > stats[j].Score
	})
	return stats
}

func (c *Client) Close() error {
	close(c.stopCh)
	c.wg.Wait()
	logger.Info("Dispatch client closed")
	return nil
}
