package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type result struct {
	mu            sync.Mutex
	statuses      map[int]int
	errors        int
	responseTimes []time.Duration
}

func (r *result) record(status int, d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responseTimes = append(r.responseTimes, d)
	if err != nil {
		r.errors++
		if r.errors <= 10 { // limit error output
			fmt.Printf("Request error: %v\n", err)
		}
		return
	}
	r.statuses[status]++
}

func main() {
	concurrency := flag.Int("c", 100, "Number of concurrent connections")
	requests := flag.Int("n", 10000, "Number of requests to make")
	url := flag.String("url", "http://localhost:8080/hello", "URL to benchmark")
	method := flag.String("method", "GET", "HTTP method")
	body := flag.String("body", "", "request body, sent with every request")
	flag.Parse()

	if *concurrency < 1 || *requests < 1 {
		fmt.Fprintln(os.Stderr, "-c and -n must be positive")
		os.Exit(2)
	}

	fmt.Printf("Benchmarking %s %s with %d requests using %d concurrent connections\n",
		*method, *url, *requests, *concurrency)

	// the server closes every connection, so there is nothing to reuse
	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}

	res := &result{statuses: make(map[int]int)}
	jobs := make(chan int)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		defer close(jobs)
		for i := range *requests {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	startTime := time.Now()
	for range *concurrency {
		g.Go(func() error {
			for reqNum := range jobs {
				req, err := http.NewRequestWithContext(ctx, *method, *url, strings.NewReader(*body))
				if err != nil {
					return err
				}
				startReq := time.Now()
				resp, err := client.Do(req)
				status := 0
				if err == nil {
					status = resp.StatusCode
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
				res.record(status, time.Since(startReq), err)

				if reqNum%1000 == 0 {
					fmt.Printf("Completed %d requests\n", reqNum)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "benchmark aborted:", err)
		os.Exit(1)
	}
	duration := time.Since(startTime)

	var totalTime time.Duration
	minTime := time.Hour
	var maxTime time.Duration
	for _, t := range res.responseTimes {
		totalTime += t
		minTime = min(minTime, t)
		maxTime = max(maxTime, t)
	}
	avgTime := totalTime / time.Duration(len(res.responseTimes))

	fmt.Printf("\nBenchmark Results:\n")
	fmt.Printf("Total requests: %d\n", *requests)
	fmt.Printf("Failed requests: %d\n", res.errors)
	codes := make([]int, 0, len(res.statuses))
	for code := range res.statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("Status %d: %d\n", code, res.statuses[code])
	}
	fmt.Printf("Total time: %v\n", duration)
	fmt.Printf("Requests per second: %.2f\n", float64(*requests)/duration.Seconds())
	fmt.Printf("Min response time: %v\n", minTime)
	fmt.Printf("Avg response time: %v\n", avgTime)
	fmt.Printf("Max response time: %v\n", maxTime)
}
