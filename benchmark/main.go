// Package main benchmarks the tqi CLI against a benchmark corpus.
// It times calibration and batch evaluation with the tool cache disabled and enabled,
// treating the first cached run as cold and averaging the rest as warm,
// and writes a CSV summary for performance tracking.
//
// Prerequisites:
// - tqi binary installed and available in PATH
// - A model description and a corpus directory with one project per subdirectory
//
// Usage: go run benchmark/main.go [description] [corpus-dir]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// BenchmarkResult holds the timings of one command (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Description string
	Corpus      string
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
}

// modelPath is where calibration writes the benchmark model.
func (c BenchmarkConfig) modelPath() string {
	return filepath.Join(c.WorkDir, "bench.calibrated.json")
}

func main() {
	if len(os.Args) != 3 {
		fmt.Printf("Usage: %s [description] [corpus-dir]\n", os.Args[0])
		os.Exit(1)
	}

	workDir, err := os.MkdirTemp("", "tqi-benchmark-*")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	config := BenchmarkConfig{
		Description: os.Args[1],
		Corpus:      os.Args[2],
		WorkDir:     workDir,
		Timeout:     10 * time.Minute,
		Workers:     8,
		NoCacheRuns: 3,
		CacheRuns:   4,
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing cache...\n")
	if output, err := exec.Command("tqi", "cache", "clear").CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the tqi binary and the inputs exist.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("tqi"); err != nil {
		return errors.New("tqi binary not found in PATH")
	}
	if _, err := os.Stat(config.Description); err != nil {
		return fmt.Errorf("description %s: %w", config.Description, err)
	}
	info, err := os.Stat(config.Corpus)
	if err != nil {
		return fmt.Errorf("corpus %s: %w", config.Corpus, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("corpus %s is not a directory", config.Corpus)
	}
	return nil
}

// runBenchmarks times calibration first, since evaluation needs the calibrated model.
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	fmt.Printf("Starting benchmark: corpus %s, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		config.Corpus, config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	calibrateArgs := []string{
		"calibrate",
		"--description", config.Description,
		"--benchmark-repo", config.Corpus,
		"--model", config.modelPath(),
	}
	calibrate := runBenchmarkSuite(config, "calibrate", calibrateArgs)
	if _, err := os.Stat(config.modelPath()); err != nil {
		return nil, fmt.Errorf("calibration produced no model: %w", err)
	}

	evaluateArgs := []string{
		"evaluate", config.Corpus,
		"--batch",
		"--model", config.modelPath(),
		"--results-dir", filepath.Join(config.WorkDir, "results"),
	}
	evaluate := runBenchmarkSuite(config, "evaluate", evaluateArgs)

	return []BenchmarkResult{calibrate, evaluate}, nil
}

// runBenchmarkSuite runs both no-cache and cache phases for a command.
func runBenchmarkSuite(config BenchmarkConfig, command string, args []string) BenchmarkResult {
	fmt.Printf("Running %s\n", command)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, args, cacheBackend, numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a tqi command several times with the given cache backend.
// Failed or timed out runs are not counted.
func runBenchmark(config BenchmarkConfig, args []string, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	fullArgs := append(slices.Clone(args),
		"--cache-backend", cacheBackend,
		"--workers", fmt.Sprint(config.Workers),
		"--progress", "no",
	)

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "tqi", fullArgs...).CombinedOutput()
		elapsed := time.Since(start)
		cancel()
		if err != nil {
			fmt.Printf("    run failed: %v\n%s", err, lastLine(output))
			continue
		}
		times = append(times, elapsed.Seconds())
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return lines[len(lines)-1] + "\n"
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("tqi_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-10s: No-cache: %s, Cold: %s, Warm: %s\n", result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
}
