// Command race_check fires concurrent transition requests at a running API and
// verifies that exactly one of them was applied while the rest came back as
// already processed.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

type result struct {
	Status   int
	Code     string
	Location string
	Duration time.Duration
	Err      error
}

type envelope struct {
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func main() {
	var (
		base    string
		path    string
		tokens  string
		workers int
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL including prefix")
	flag.StringVar(&path, "path", "", "transition path, e.g. /approve/inventory/<id>")
	flag.StringVar(&tokens, "tokens", os.Getenv("RACE_TOKENS"), "comma separated bearer tokens, one per simulated approver")
	flag.IntVar(&workers, "n", 8, "concurrent requests")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if path == "" || tokens == "" {
		log.Fatal("both -path and -tokens are required")
	}
	bearer := strings.Split(tokens, ",")
	client := &http.Client{Timeout: timeout}

	results := make([]result, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = fire(client, strings.TrimRight(base, "/")+path, strings.TrimSpace(bearer[i%len(bearer)]))
		}(i)
	}
	close(start)
	wg.Wait()

	applied, processed, other := 0, 0, 0
	for i, res := range results {
		switch {
		case res.Err != nil:
			other++
			fmt.Printf("#%d error: %v\n", i, res.Err)
			continue
		case res.Status >= 200 && res.Status < 300:
			applied++
		case res.Code == "ALREADY_PROCESSED":
			processed++
		default:
			other++
		}
		fmt.Printf("#%d %d %-18s %-8s %s\n", i, res.Status, res.Code, res.Duration.Round(time.Millisecond), res.Location)
	}

	fmt.Printf("applied: %d, already processed: %d, other: %d\n", applied, processed, other)
	if applied != 1 || other > 0 {
		os.Exit(1)
	}
}

func fire(client *http.Client, url, token string) result {
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return result{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return result{Err: err}
	}
	defer resp.Body.Close()

	res := result{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Duration: time.Since(start)}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Err = err
		return res
	}
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		res.Code = env.Error.Code
	}
	return res
}
