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

type invoicePayload struct {
	ClientName         string  `json:"client_name"`
	Contact            string  `json:"contact"`
	ProductType        string  `json:"product_type"`
	ProductDescription string  `json:"product_description"`
	DamageProblem      string  `json:"damage_problem"`
	Address            string  `json:"address"`
	JobStatus          string  `json:"job_status"`
	PaymentStatus      string  `json:"payment_status"`
	OverallStatus      string  `json:"overall_status"`
	Amount             float64 `json:"amount"`
	GivenAmount        float64 `json:"given_amount"`
}

type loadConfig struct {
	BaseURL           string
	RequestsPerSecond int
	DurationSeconds   int
	ConcurrentWorkers int
	// every Nth request is a write, the rest are reads
	WriteEvery int
}

type stats struct {
	success atomic.Int64
	failure atomic.Int64
	mu      sync.Mutex
	latency []float64
}

func (s *stats) observe(d time.Duration, ok bool) {
	if ok {
		s.success.Add(1)
	} else {
		s.failure.Add(1)
	}
	s.mu.Lock()
	s.latency = append(s.latency, d.Seconds())
	s.mu.Unlock()
}

func (s *stats) sorted() []float64 {
	s.mu.Lock()
	out := append([]float64(nil), s.latency...)
	s.mu.Unlock()
	sort.Float64s(out)
	return out
}

var readPaths = []string{
	"/get_all_invoices",
	"/get_pending_status",
	"/get_pending_invoice_count",
	"/get_paid_invoice_count",
	"/get_total_amount",
	"/get_amount_to_be_collected",
	"/get_invoice_details?identifier=1",
}

func do(client *http.Client, req *http.Request, st *stats) {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		st.observe(time.Since(start), false)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	st.observe(time.Since(start), resp.StatusCode < 400)
}

func worker(client *http.Client, cfg loadConfig, payload []byte, st *stats, jobs <-chan int, wg *sync.WaitGroup) {
	defer wg.Done()
	for n := range jobs {
		var req *http.Request
		var err error
		if cfg.WriteEvery > 0 && n%cfg.WriteEvery == 0 {
			req, err = http.NewRequest(http.MethodPost, cfg.BaseURL+"/add_invoice", bytes.NewReader(payload))
			if err == nil {
				req.Header.Set("Content-Type", "application/json")
			}
		} else {
			req, err = http.NewRequest(http.MethodGet, cfg.BaseURL+readPaths[n%len(readPaths)], nil)
		}
		if err != nil {
			st.observe(0, false)
			continue
		}
		do(client, req, st)
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(float64(len(sorted)) * p)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func main() {
	cfg := loadConfig{
		BaseURL:           strings.TrimRight(envString("TARGET_URL", "http://localhost:6334"), "/"),
		RequestsPerSecond: envInt("REQUESTS_PER_SECOND", 200),
		DurationSeconds:   envInt("DURATION_SECONDS", 30),
		ConcurrentWorkers: envInt("CONCURRENT_WORKERS", 50),
		WriteEvery:        envInt("WRITE_EVERY", 10),
	}

	payload, err := json.Marshal(invoicePayload{
		ClientName:         "Load Test Client",
		Contact:            "555-0100",
		ProductType:        "TV",
		ProductDescription: "42in LED",
		DamageProblem:      "no power",
		Address:            "1 Main St",
		JobStatus:          "YET-TO",
		PaymentStatus:      "UNPAID",
		OverallStatus:      "PENDING",
		Amount:             100,
	})
	if err != nil {
		panic(err)
	}

	fmt.Println("Starting load test...")
	fmt.Printf("Target: %s\n", cfg.BaseURL)
	fmt.Printf("Target RPS: %d for %d seconds, %d workers, 1 write per %d requests\n",
		cfg.RequestsPerSecond, cfg.DurationSeconds, cfg.ConcurrentWorkers, cfg.WriteEvery)
	fmt.Println(strings.Repeat("-", 50))

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        cfg.ConcurrentWorkers,
			MaxIdleConnsPerHost: cfg.ConcurrentWorkers,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: 30 * time.Second,
	}

	st := &stats{}
	jobs := make(chan int, cfg.RequestsPerSecond)
	var wg sync.WaitGroup
	for i := 0; i < cfg.ConcurrentWorkers; i++ {
		wg.Add(1)
		go worker(client, cfg, payload, st, jobs, &wg)
	}

	start := time.Now()
	n := 0
	for sec := 0; sec < cfg.DurationSeconds; sec++ {
		tick := time.Now()
		for j := 0; j < cfg.RequestsPerSecond; j++ {
			jobs <- n
			n++
		}
		fmt.Printf("[%ds] success: %d | failed: %d\n", sec+1, st.success.Load(), st.failure.Load())
		if elapsed := time.Since(tick); elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start).Seconds()
	success, failure := st.success.Load(), st.failure.Load()
	total := success + failure
	lat := st.sorted()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Duration: %.2f seconds\n", elapsed)
	fmt.Printf("Total requests: %d (ok %d, failed %d)\n", total, success, failure)
	if total > 0 {
		fmt.Printf("Actual RPS: %.2f\n", float64(total)/elapsed)
	}
	fmt.Printf("P50: %.2f ms  P95: %.2f ms  P99: %.2f ms\n",
		percentile(lat, 0.50)*1000, percentile(lat, 0.95)*1000, percentile(lat, 0.99)*1000)
	if len(lat) > 0 {
		fmt.Printf("Min: %.2f ms  Max: %.2f ms\n", lat[0]*1000, lat[len(lat)-1]*1000)
	}
}
