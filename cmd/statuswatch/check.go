package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/hazz-dev/statuswatch/internal/probe"
)

func runChecks(ctx context.Context, out io.Writer, prober probe.Prober, targets []string, timeoutMs int64) error {
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]probe.Result, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = prober.Probe(ctx, target, timeoutMs)
		}()
	}
	wg.Wait()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tSTATUS\tCODE\tRESPONSE\tERROR")
	allHealthy := true
	for i, r := range results {
		code := "-"
		if r.StatusCode != nil {
			code = strconv.Itoa(*r.StatusCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			targets[i],
			r.Status,
			code,
			(time.Duration(r.ResponseTimeMs) * time.Millisecond).String(),
			r.ErrorMessage,
		)
		if !r.Healthy() {
			allHealthy = false
		}
	}
	w.Flush()

	if !allHealthy {
		return fmt.Errorf("one or more targets are unhealthy")
	}
	return nil
}
