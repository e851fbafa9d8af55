// Loadtest hammers the web client config endpoint with concurrent GETs and
// reports throughput, latency percentiles and how many responses were not a
// usable client configuration.
//
// Usage:
//
//	go run ./scripts/loadtest --url http://localhost:7070/inverse/config --concurrency 20 --requests 2000
//	go run ./scripts/loadtest --url https://chat.example.org/inverse/config --forwarded-proto https --csv results.csv
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
)

type result struct {
	idx      int
	status   int
	duration time.Duration
	bytes    int
	err      error
	invalid  bool
}

type summary struct {
	Target        string      `json:"target"`
	Requests      int         `json:"requests"`
	Concurrency   int         `json:"concurrency"`
	Success       int64       `json:"success"`
	Failure       int64       `json:"failure"`
	Invalid       int64       `json:"invalid_documents"`
	DurationMs    int64       `json:"duration_ms"`
	ThroughputRPS float64     `json:"throughput_rps"`
	StatusCodes   map[int]int `json:"status_codes"`
	P50           float64     `json:"p50_ms"`
	P90           float64     `json:"p90_ms"`
	P95           float64     `json:"p95_ms"`
	P99           float64     `json:"p99_ms"`
}

func main() {
	url := pflag.String("url", "http://localhost:7070/inverse/config", "config endpoint URL")
	concurrency := pflag.Int("concurrency", 10, "number of concurrent workers")
	requests := pflag.Int("requests", 1000, "total number of requests to send")
	timeout := pflag.Duration("timeout", 10*time.Second, "per-request timeout")
	forwardedProto := pflag.String("forwarded-proto", "", "send X-Forwarded-Proto with this value")
	outJSON := pflag.String("out", "", "write a JSON summary to this file")
	outCSV := pflag.String("csv", "", "write per-request rows to this file")
	verbose := pflag.BoolP("verbose", "v", false, "print every request")
	pflag.Parse()

	client := &http.Client{Timeout: *timeout}

	jobs := make(chan int)
	results := make(chan result, *concurrency)

	var wg sync.WaitGroup
	for range *concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- fetch(client, *url, *forwardedProto, idx)
			}
		}()
	}

	start := time.Now()
	go func() {
		for i := range *requests {
			jobs <- i
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var csvWriter *csv.Writer
	if *outCSV != "" {
		f, err := os.Create(*outCSV)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create csv file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		csvWriter = csv.NewWriter(f)
		_ = csvWriter.Write([]string{"idx", "status", "bytes", "duration_ms", "error"})
	}

	var success, failure, invalid atomic.Int64
	statusCodes := make(map[int]int)
	latencies := make([]time.Duration, 0, *requests)

	for res := range results {
		latencies = append(latencies, res.duration)
		statusCodes[res.status]++

		switch {
		case res.err != nil || res.status != http.StatusOK:
			failure.Add(1)
		case res.invalid:
			invalid.Add(1)
			failure.Add(1)
		default:
			success.Add(1)
		}

		if csvWriter != nil {
			errText := ""
			if res.err != nil {
				errText = res.err.Error()
			}
			_ = csvWriter.Write([]string{
				strconv.Itoa(res.idx),
				strconv.Itoa(res.status),
				strconv.Itoa(res.bytes),
				fmt.Sprintf("%.3f", float64(res.duration.Microseconds())/1000.0),
				errText,
			})
		}
		if *verbose {
			fmt.Printf("idx=%d status=%d bytes=%d dur=%v err=%v\n", res.idx, res.status, res.bytes, res.duration, res.err)
		}
	}
	elapsed := time.Since(start)

	if csvWriter != nil {
		csvWriter.Flush()
	}

	slices.Sort(latencies)
	pct := func(p float64) float64 {
		if len(latencies) == 0 {
			return 0
		}
		return float64(latencies[int(float64(len(latencies)-1)*p)].Microseconds()) / 1000.0
	}

	sum := summary{
		Target:        *url,
		Requests:      *requests,
		Concurrency:   *concurrency,
		Success:       success.Load(),
		Failure:       failure.Load(),
		Invalid:       invalid.Load(),
		DurationMs:    elapsed.Milliseconds(),
		ThroughputRPS: float64(len(latencies)) / elapsed.Seconds(),
		StatusCodes:   statusCodes,
		P50:           pct(0.50),
		P90:           pct(0.90),
		P95:           pct(0.95),
		P99:           pct(0.99),
	}

	fmt.Println("--- Config Load Test ---")
	fmt.Printf("Target: %s\n", sum.Target)
	fmt.Printf("Requests: %d  Concurrency: %d\n", sum.Requests, sum.Concurrency)
	fmt.Printf("Success: %d  Failure: %d  Invalid documents: %d\n", sum.Success, sum.Failure, sum.Invalid)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", elapsed, sum.ThroughputRPS)
	fmt.Printf("Latency ms: p50=%.3f p90=%.3f p95=%.3f p99=%.3f\n", sum.P50, sum.P90, sum.P95, sum.P99)

	codes := make([]int, 0, len(statusCodes))
	for code := range statusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	fmt.Println("\nStatus codes:")
	for _, code := range codes {
		fmt.Printf("  %d -> %d\n", code, statusCodes[code])
	}

	if *outJSON != "" {
		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		_ = enc.Encode(sum)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if sum.Failure > 0 {
		os.Exit(2)
	}
}

// fetch requests the config once. A 200 response whose body is not a JSON
// object with a bosh_service_url is counted as invalid.
func fetch(client *http.Client, url, forwardedProto string, idx int) result {
	res := result{idx: idx}
	start := time.Now()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		res.err = err
		return res
	}
	if forwardedProto != "" {
		req.Header.Set("X-Forwarded-Proto", forwardedProto)
	}

	resp, err := client.Do(req)
	if err != nil {
		res.err = err
		res.duration = time.Since(start)
		return res
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	res.duration = time.Since(start)
	res.status = resp.StatusCode
	res.bytes = len(body)
	if err != nil {
		res.err = err
		return res
	}

	var doc struct {
		BoshServiceURL string `json:"bosh_service_url"`
	}
	if err := json.Unmarshal(body, &doc); err != nil || doc.BoshServiceURL == "" {
		res.invalid = true
	}
	return res
}
