package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// statsTargets are summed across labels for the live view.
var statsTargets = []string{
	"aegis_samples_admitted_total",
	"aegis_samples_dropped_total",
	"aegis_payloads_published_total",
	"aegis_publish_failed_total",
	"aegis_backlog_length",
	"aegis_session_reconnects_total",
}

func statsCmd() *cobra.Command {
	var (
		url      string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Stream a summary of a running agent's metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Streaming metrics from %s (Ctrl+C to stop)\n", url)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := printMetricsSnapshot(ctx, out, url); err != nil {
						failure(os.Stderr, "stats error: %v", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "refresh interval")
	return cmd
}

func printMetricsSnapshot(ctx context.Context, w io.Writer, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := sumMetrics(resp.Body, statsTargets)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "[%s]", time.Now().Format(time.Kitchen))
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kv(w, strings.TrimPrefix(k, "aegis_"), values[k])
	}
	fmt.Fprintln(w)
	return nil
}

// sumMetrics reads Prometheus text exposition and sums every sample of the
// named metrics regardless of labels.
func sumMetrics(r io.Reader, names []string) (map[string]float64, error) {
	out := make(map[string]float64, len(names))
	for _, n := range names {
		out[n] = 0
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := line
		if i := strings.IndexAny(line, "{ "); i >= 0 {
			name = line[:i]
		}
		if _, ok := out[name]; !ok {
			continue
		}
		i := strings.LastIndexByte(line, ' ')
		if i < 0 {
			continue
		}
		v, err := strconv.ParseFloat(line[i+1:], 64)
		if err != nil {
			continue
		}
		out[name] += v
	}
	return out, scanner.Err()
}
