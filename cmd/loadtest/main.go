// Command loadtest drives a running searcher with a fixed set of free-text
// questions and reports throughput, latency percentiles, status codes and
// the mean number of ranked documents per answer.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"
)

var defaultQuestions = []string{
	"What are the effects of calcium on the physical properties of mucus from CF patients?",
	"Can one distinguish between the effects of mucus hypersecretion and infection on the submucosal glands of the respiratory tract in CF?",
	"How are salivary glycoproteins from CF patients different from those of normal subjects?",
	"What is the lipid composition of CF respiratory secretions?",
	"Is CF mucus abnormal?",
	"What is the role of Pseudomonas aeruginosa in CF lung disease?",
	"sweat chloride testing in infants",
	"pancreatic enzyme replacement therapy",
	"heterozygote detection",
	"aminoglycoside antibiotics pharmacokinetics",
}

type runConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Questions   []string
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	emptyAnswers  atomic.Int64
	rankedDocs    atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

// RecordRequest tallies one request. hits is the number of ranked documents
// returned and is ignored for failed requests.
func (s *Stats) RecordRequest(duration time.Duration, statusCode, hits int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
		s.rankedDocs.Add(int64(hits))
		if hits == 0 {
			s.emptyAnswers.Add(1)
		}
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

func main() {
	app := &cli.App{
		Name:  "loadtest",
		Usage: "generate query load against a running searcher",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "base URL of the search service"},
			&cli.IntFlag{Name: "concurrency", Aliases: []string{"n"}, Value: 10, Usage: "number of concurrent workers"},
			&cli.DurationFlag{Name: "duration", Aliases: []string{"d"}, Value: 30 * time.Second, Usage: "test duration"},
			&cli.IntFlag{Name: "limit", Usage: "optional limit parameter sent with every query"},
			&cli.StringFlag{Name: "questions", Aliases: []string{"q"}, Usage: "file with one question per line"},
		},
		Action: func(c *cli.Context) error {
			questions := defaultQuestions
			if path := c.String("questions"); path != "" {
				loaded, err := readQuestions(path)
				if err != nil {
					return err
				}
				questions = loaded
			}
			if c.Int("concurrency") < 1 {
				return cli.Exit("concurrency must be at least 1", 2)
			}
			cfg := runConfig{
				BaseURL:     strings.TrimRight(c.String("url"), "/"),
				Concurrency: c.Int("concurrency"),
				Duration:    c.Duration("duration"),
				Limit:       c.Int("limit"),
				Questions:   questions,
			}

			out := c.App.Writer
			fmt.Fprintln(out, "=== Search Load Test ===")
			fmt.Fprintf(out, "Target:      %s\n", cfg.BaseURL)
			fmt.Fprintf(out, "Concurrency: %d\n", cfg.Concurrency)
			fmt.Fprintf(out, "Duration:    %s\n", cfg.Duration)
			fmt.Fprintf(out, "Questions:   %d unique\n", len(cfg.Questions))
			fmt.Fprintln(out)

			stats := runLoadTest(c.Context, cfg, out)
			if printReport(out, stats, cfg.Duration) == 0 {
				return cli.Exit("no requests completed, is the searcher running?", 1)
			}
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening questions file: %w", err)
	}
	defer f.Close()

	var questions []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			questions = append(questions, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading questions file: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("questions file %s is empty", path)
	}
	return questions, nil
}

func searchURL(cfg runConfig, question string) string {
	u := fmt.Sprintf("%s/api/v1/search?q=%s", cfg.BaseURL, url.QueryEscape(question))
	if cfg.Limit > 0 {
		u += fmt.Sprintf("&limit=%d", cfg.Limit)
	}
	return u
}

func runLoadTest(parent context.Context, cfg runConfig, out io.Writer) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(parent, cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Fprint(out, "Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			next := workerID
			for ctx.Err() == nil {
				question := cfg.Questions[next%len(cfg.Questions)]
				next++

				start := time.Now()
				status, hits, err := doSearch(ctx, client, searchURL(cfg, question))
				if ctx.Err() != nil {
					return
				}
				stats.RecordRequest(time.Since(start), status, hits, err)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Fprint(out, ".")
			}
		}
	}()

	wg.Wait()
	fmt.Fprintln(out, " done!")
	fmt.Fprintln(out)
	return stats
}

func doSearch(ctx context.Context, client *http.Client, rawURL string) (int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	var body struct {
		Results []json.RawMessage `json:"results"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return resp.StatusCode, 0, fmt.Errorf("decoding response: %w", err)
		}
	}
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, len(body.Results), nil
}

func printReport(out io.Writer, stats *Stats, duration time.Duration) int64 {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Fprintln(out, "=== Results ===")
	fmt.Fprintf(out, "Total Requests:  %d\n", total)
	fmt.Fprintf(out, "Successful:      %d\n", success)
	fmt.Fprintf(out, "Errors:          %d\n", errors)

	if total > 0 {
		fmt.Fprintf(out, "Error Rate:      %.2f%%\n", float64(errors)/float64(total)*100)
		fmt.Fprintf(out, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}
	if success > 0 {
		fmt.Fprintf(out, "Empty Answers:   %d\n", stats.emptyAnswers.Load())
		fmt.Fprintf(out, "Mean Ranked:     %.2f docs\n", float64(stats.rankedDocs.Load())/float64(success))
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Fprintln(out)
		fmt.Fprintln(out, "=== Latency ===")
		fmt.Fprintf(out, "Min:    %s\n", latencies[0])
		fmt.Fprintf(out, "Avg:    %s\n", avg)
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(out, "P%-2.0f:    %s\n", p, percentile(latencies, p))
		}
		fmt.Fprintf(out, "Max:    %s\n", latencies[len(latencies)-1])
		fmt.Fprintf(out, "StdDev: %s\n", stddev(latencies, avg))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(out, "  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()
	return total
}

func stddev(latencies []time.Duration, avg time.Duration) time.Duration {
	var sumSquared float64
	for _, l := range latencies {
		diff := float64(l - avg)
		sumSquared += diff * diff
	}
	return time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
