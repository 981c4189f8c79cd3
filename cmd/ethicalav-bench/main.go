package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/dilasha-ghimire/EthicalAV/internal/dataset"
	"github.com/dilasha-ghimire/EthicalAV/internal/ethics"
	"github.com/dilasha-ghimire/EthicalAV/internal/policy"
)

func main() {
	n := flag.Int("n", 10000, "number of iterations")
	modeFlag := flag.String("mode", "utilitarian", "ethical mode to benchmark")
	seed := flag.Int64("seed", 42, "scenario generator seed")
	flag.Parse()

	if *n <= 0 {
		*n = 1
	}

	mode := ethics.ParseMode(*modeFlag)
	recs := dataset.NewGenerator(*seed).Take(*n)
	if len(recs) == 0 {
		log.Fatalf("no scenarios generated")
	}

	// Warmup
	for i := 0; i < 5; i++ {
		policy.Decide(mode, recs[i%len(recs)])
	}

	durations := make([]time.Duration, 0, *n)
	for _, rec := range recs {
		start := time.Now()
		policy.Decide(mode, rec)
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	var total time.Duration
	for _, d := range durations {
		total += d
	}

	avg := float64(total.Nanoseconds()) / 1000.0 / float64(len(durations))
	p50 := float64(durations[len(durations)/2].Nanoseconds()) / 1000.0
	p95 := float64(durations[int(float64(len(durations))*0.95)].Nanoseconds()) / 1000.0

	fmt.Printf("bench: n=%d avg_us=%.2f p50_us=%.2f p95_us=%.2f mode=%s seed=%d\n",
		len(durations),
		avg,
		p50,
		p95,
		mode,
		*seed,
	)
}
