package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ServiceEvent is the admission payload posted to the API.
type ServiceEvent struct {
	ReviewRequestID    string    `json:"reviewRequestId"`
	CustomerID         string    `json:"customerId"`
	CustomerName       string    `json:"customerName"`
	CustomerEmail      string    `json:"customerEmail"`
	CustomerPhone      string    `json:"customerPhone"`
	TechnicianName     string    `json:"technicianName"`
	ServiceType        string    `json:"serviceType"`
	InvoiceAmount      string    `json:"invoiceAmount"`
	PositiveExperience bool      `json:"positiveExperience"`
	CompletedAt        time.Time `json:"completedAt"`
}

type LoadTestConfig struct {
	URL               string
	RequestsPerSecond int
	DurationSeconds   int
	ConcurrentWorkers int
	Token             string
}

type Stats struct {
	admitted      atomic.Int64
	rejected      atomic.Int64
	errorCount    atomic.Int64
	responseTimes []float64
	mu            sync.Mutex
}

func (s *Stats) addResponseTime(duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responseTimes = append(s.responseTimes, duration)
}

func (s *Stats) sortedResponseTimes() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	times := make([]float64, len(s.responseTimes))
	copy(times, s.responseTimes)
	sort.Float64s(times)
	return times
}

func newEvent(seq int64) []byte {
	id := strconv.FormatInt(seq, 10)
	b, _ := json.Marshal(ServiceEvent{
		ReviewRequestID:    "load-" + id,
		CustomerID:         "load-customer-" + id,
		CustomerName:       "Load Test",
		CustomerEmail:      "load+" + id + "@example.com",
		CustomerPhone:      "+15550100",
		TechnicianName:     "Bo",
		ServiceType:        "Drain Cleaning",
		InvoiceAmount:      "180.00",
		PositiveExperience: true,
		CompletedAt:        time.Now().UTC(),
	})
	return b
}

func sendRequest(client *http.Client, config LoadTestConfig, payload []byte, stats *Stats) {
	start := time.Now()

	req, err := http.NewRequest(http.MethodPost, config.URL, bytes.NewReader(payload))
	if err != nil {
		stats.errorCount.Add(1)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+config.Token)

	resp, err := client.Do(req)
	stats.addResponseTime(time.Since(start).Seconds())
	if err != nil {
		stats.errorCount.Add(1)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated:
		stats.admitted.Add(1)
	case http.StatusOK:
		stats.rejected.Add(1)
	default:
		stats.errorCount.Add(1)
	}
}

func worker(client *http.Client, config LoadTestConfig, stats *Stats, jobs <-chan int64, wg *sync.WaitGroup) {
	defer wg.Done()
	for seq := range jobs {
		sendRequest(client, config, newEvent(seq), stats)
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func main() {
	config := LoadTestConfig{
		URL:               getEnvOrDefault("TARGET_URL", "http://localhost:8080/api/v1/companies/acme/service-events"),
		RequestsPerSecond: getEnvIntOrDefault("REQUESTS_PER_SECOND", 500),
		DurationSeconds:   getEnvIntOrDefault("DURATION_SECONDS", 30),
		ConcurrentWorkers: getEnvIntOrDefault("CONCURRENT_WORKERS", 100),
		Token:             os.Getenv("API_TOKEN"),
	}
	if config.Token == "" {
		fmt.Println("API_TOKEN is required, issue one with: followupctl token --company=acme")
		os.Exit(1)
	}

	fmt.Println("Starting load test...")
	fmt.Printf("Target: %s\n", config.URL)
	fmt.Printf("Target RPS: %d for %d seconds with %d workers\n", config.RequestsPerSecond, config.DurationSeconds, config.ConcurrentWorkers)
	fmt.Println(strings.Repeat("-", 50))

	stats := &Stats{}
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        config.ConcurrentWorkers,
			MaxIdleConnsPerHost: config.ConcurrentWorkers,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: 30 * time.Second,
	}

	jobs := make(chan int64, config.RequestsPerSecond)
	var wg sync.WaitGroup
	for i := 0; i < config.ConcurrentWorkers; i++ {
		wg.Add(1)
		go worker(client, config, stats, jobs, &wg)
	}

	startTime := time.Now()
	var seq int64
	for i := 0; i < config.DurationSeconds; i++ {
		batchStart := time.Now()
		for j := 0; j < config.RequestsPerSecond; j++ {
			seq++
			jobs <- startTime.UnixNano() + seq
		}

		fmt.Printf("[%ds] admitted: %d | rejected: %d | errors: %d\n",
			i+1, stats.admitted.Load(), stats.rejected.Load(), stats.errorCount.Load())

		if elapsed := time.Since(batchStart); elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}
	close(jobs)
	wg.Wait()

	duration := time.Since(startTime).Seconds()
	admitted, rejected, errs := stats.admitted.Load(), stats.rejected.Load(), stats.errorCount.Load()
	total := admitted + rejected + errs
	times := stats.sortedResponseTimes()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Duration: %.2f seconds\n", duration)
	fmt.Printf("Total requests: %d (admitted %d, rejected %d, failed %d)\n", total, admitted, rejected, errs)
	fmt.Printf("Actual RPS: %.2f\n", float64(total)/duration)
	if len(times) > 0 {
		fmt.Printf("\nResponse times:\n")
		fmt.Printf("  P50: %.2f ms\n", percentile(times, 0.50)*1000)
		fmt.Printf("  P95: %.2f ms\n", percentile(times, 0.95)*1000)
		fmt.Printf("  P99: %.2f ms\n", percentile(times, 0.99)*1000)
		fmt.Printf("  Min: %.2f ms\n", times[0]*1000)
		fmt.Printf("  Max: %.2f ms\n", times[len(times)-1]*1000)
	}
}
