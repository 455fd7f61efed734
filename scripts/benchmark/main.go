package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/signalscrape/models"
)

// CLI flags
var (
	apiURL  = flag.String("api-url", "http://localhost:8080", "signalscrape API base URL")
	apiKey  = flag.String("api-key", "", "API key for authenticated requests")
	runs    = flag.Int("runs", 3, "Number of runs per target for averaging")
	output  = flag.String("output", "benchmark-results.json", "JSON output file path")
	targets = flag.String("targets", "", "JSON file of targets; defaults to the built-in list")
)

// target is one page to benchmark. Platform empty means a product page.
type target struct {
	Label    string `json:"label"`
	URL      string `json:"url"`
	Platform string `json:"platform,omitempty"`
}

var defaultTargets = []target{
	{Label: "Product", URL: "https://www.etsy.com/listing/1"},
	{Label: "Product", URL: "https://www.ikea.com/us/en/p/billy-bookcase-white-00263850/"},
	{Label: "YouTube", URL: "https://www.youtube.com/@golang", Platform: "youtube"},
	{Label: "Instagram", URL: "https://www.instagram.com/instagram/", Platform: "instagram"},
	{Label: "X", URL: "https://x.com/golang", Platform: "twitter"},
}

// --- Benchmark result types ---

type runResult struct {
	Run     int   `json:"run"`
	TotalMs int64 `json:"total_ms"`
	// Signals is the number of product fields found, or 1 if a follower
	// count was read.
	Signals int    `json:"signals"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type targetAverages struct {
	TotalMs float64 `json:"total_ms"`
	Signals float64 `json:"signals"`
}

type targetResult struct {
	target
	Runs     []runResult     `json:"runs"`
	Averages *targetAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp     string         `json:"timestamp"`
	APIURL        string         `json:"api_url"`
	RunsPerTarget int            `json:"runs_per_target"`
	Results       []targetResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== signalscrape Benchmark Suite ===")
	fmt.Printf("API URL:      %s\n", *apiURL)
	fmt.Printf("Runs/target:  %d\n", *runs)
	fmt.Printf("Output:       %s\n", *output)
	fmt.Println()

	list, err := loadTargets(*targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 90 * time.Second}

	if err := checkAPI(client, *apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure signalscrape is running\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		APIURL:        *apiURL,
		RunsPerTarget: *runs,
	}

	for _, t := range list {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		tr := targetResult{target: t}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkTarget(client, t, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d signals\n", rr.TotalMs, rr.Signals)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			tr.Runs = append(tr.Runs, rr)
		}

		tr.Averages = computeAverages(tr.Runs)
		report.Results = append(report.Results, tr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func loadTargets(path string) ([]target, error) {
	if path == "" {
		return defaultTargets, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	var list []target
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse targets: %w", err)
	}
	return list, nil
}

func checkAPI(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkTarget(client *http.Client, t target, run int) runResult {
	rr := runResult{Run: run}

	path, payload := "/api/v1/product", any(models.ProductRequest{URL: t.URL})
	if t.Platform != "" {
		path, payload = "/api/v1/followers", models.FollowerRequest{URL: t.URL, Platform: t.Platform}
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	if t.Platform != "" {
		var fr models.FollowerResponse
		if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
			rr.Error = fmt.Sprintf("decode error: %v", err)
			return rr
		}
		rr.Success, rr.TotalMs = fr.Success, fr.Timing.TotalMs
		if fr.Data.Followers != nil {
			rr.Signals = 1
		}
		if fr.Error != nil {
			rr.Error = fr.Error.Message
		}
		return rr
	}

	var pr models.ProductResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}
	rr.Success, rr.TotalMs = pr.Success, pr.Timing.TotalMs
	rr.Signals = countSignals(pr.Data)
	if pr.Error != nil {
		rr.Error = pr.Error.Message
	}
	return rr
}

func countSignals(s models.ProductSignals) int {
	n := 0
	for _, f := range []*string{s.Title, s.Description, s.Price, s.Category, s.MetaDescription, s.Heading, s.ProductType} {
		if f != nil {
			n++
		}
	}
	return n
}

func computeAverages(runs []runResult) *targetAverages {
	var successCount int
	var avg targetAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.Signals += float64(r.Signals)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.Signals /= n
	return &avg
}

func printTable(results []targetResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Target\tKind\tAvg Latency\tAvg Signals\n")
	fmt.Fprintf(w, "──────\t────\t───────────\t───────────\n")

	for _, r := range results {
		kind := "product"
		if r.Platform != "" {
			kind = r.Platform
		}
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\t%s\tFAILED\t-\n", truncateURL(r.URL, 50), kind)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%dms\t%.1f\n",
			truncateURL(r.URL, 50),
			kind,
			int64(r.Averages.TotalMs),
			r.Averages.Signals,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
