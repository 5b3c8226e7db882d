package main

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	gateway "github.com/rankitpro/review-followup/internal/gateways"
	"github.com/rankitpro/review-followup/internal/model"
)

// MockProvider accepts email and SMS send requests the way a vendor
// would, rejecting a configurable share of them.
type MockProvider struct {
	mu          sync.Mutex
	failureRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	providerID  string
	rng         *rand.Rand
	sent        map[model.Channel]int
}

func NewMockProvider(failureRate float64, minDelay, maxDelay time.Duration) *MockProvider {
	return &MockProvider{
		failureRate: failureRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		providerID:  "MOCK_PROVIDER_" + uuid.New().String()[:8],
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		sent:        map[model.Channel]int{},
	}
}

var errorCodes = map[string]string{
	"INVALID_RECIPIENT": "The recipient address is invalid or not in service",
	"BLOCKED":           "The recipient has opted out with the carrier",
	"INVALID_CONTENT":   "Message content violates provider policies",
	"QUOTA_EXCEEDED":    "Daily sending quota exceeded",
}

var errorCodeList = []string{"INVALID_RECIPIENT", "BLOCKED", "INVALID_CONTENT", "QUOTA_EXCEEDED"}

func (m *MockProvider) delay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxDelay <= m.minDelay {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(m.maxDelay-m.minDelay)))
}

// decide returns an empty code when the message is accepted.
func (m *MockProvider) decide(channel model.Channel) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rng.Float64() < m.failureRate {
		return errorCodeList[m.rng.Intn(len(errorCodeList))]
	}
	m.sent[channel]++
	return ""
}

func (m *MockProvider) simulate(req *gateway.SendRequest) *gateway.SendResponse {
	time.Sleep(m.delay())

	resp := &gateway.SendResponse{
		MessageID:   req.MessageID,
		ProcessedAt: time.Now(),
	}
	if code := m.decide(req.Channel); code != "" {
		resp.Status = gateway.StatusRejected
		resp.ErrorCode = code
		resp.ErrorMsg = errorCodes[code]
		log.Warn().
			Str("message_id", req.MessageID).
			Str("channel", string(req.Channel)).
			Str("error_code", code).
			Msg("Message rejected")
		return resp
	}

	resp.Status = gateway.StatusAccepted
	resp.ProviderMessageID = m.providerID + "-" + uuid.New().String()
	log.Info().
		Str("message_id", req.MessageID).
		Str("channel", string(req.Channel)).
		Str("to", req.To).
		Msg("Message accepted")
	return resp
}

type Handler struct {
	provider *MockProvider
}

func NewHandler(provider *MockProvider) *Handler {
	return &Handler{provider: provider}
}

// Send handles POST /api/v1/:channel/send.
func (h *Handler) Send(c *gin.Context) {
	channel := model.Channel(c.Param("channel"))
	if !channel.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown channel " + string(channel)})
		return
	}

	var req gateway.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if req.MessageID == "" || req.To == "" || req.Body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message_id, to and body are required"})
		return
	}
	if req.Channel == "" {
		req.Channel = channel
	}
	if channel == model.ChannelEmail && req.Subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject is required for email"})
		return
	}

	resp := h.provider.simulate(&req)
	status := http.StatusOK
	if resp.Status == gateway.StatusRejected {
		status = http.StatusAccepted
	}
	c.JSON(status, resp)
}

func (h *Handler) Health(c *gin.Context) {
	h.provider.mu.Lock()
	sent := make(map[model.Channel]int, len(h.provider.sent))
	for k, v := range h.provider.sent {
		sent[k] = v
	}
	rate := h.provider.failureRate
	h.provider.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"provider_id":  h.provider.providerID,
		"timestamp":    time.Now(),
		"failure_rate": rate,
		"sent":         sent,
	})
}

// UpdateConfig changes the failure rate at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var body struct {
		FailureRate *float64 `json:"failure_rate"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if body.FailureRate == nil || *body.FailureRate < 0 || *body.FailureRate > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failure_rate must be within [0, 1]"})
		return
	}

	h.provider.mu.Lock()
	h.provider.failureRate = *body.FailureRate
	h.provider.mu.Unlock()
	log.Info().Float64("rate", *body.FailureRate).Msg("Updated failure rate")

	c.JSON(http.StatusOK, gin.H{"failure_rate": *body.FailureRate})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/:channel/send", handler.Send)
		v1.PUT("/config", handler.UpdateConfig)
	}
	router.GET("/health", handler.Health)

	return router
}
