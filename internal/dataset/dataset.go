// Package dataset generates seeded dilemma scenarios and labels them
// with the action each ethical mode decides, producing one CSV per mode.
package dataset

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/dilasha-ghimire/EthicalAV/internal/ethics"
	"github.com/dilasha-ghimire/EthicalAV/internal/policy"
	"github.com/dilasha-ghimire/EthicalAV/internal/scenario"
)

// Scenario speed range in kph, inclusive.
const maxSpeedKph = 70

// Config controls dataset generation.
type Config struct {
	Rows    int
	Seed    int64
	OutDir  string
	Workers int
}

// Generator produces random scenario records from a seeded source. The
// same seed always yields the same sequence.
type Generator struct {
	rng   *rand.Rand
	kinds []scenario.Kind
}

// NewGenerator returns a generator over the known scenario kinds.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng:   rand.New(rand.NewSource(seed)),
		kinds: scenario.Kinds(),
	}
}

// Next draws one scenario: a uniform kind, a fair child flag, side
// risks in [0,1), and a speed in [0,70].
func (g *Generator) Next() scenario.Record {
	kind := g.kinds[g.rng.Intn(len(g.kinds))]
	child := g.rng.Intn(2) == 1
	left := g.rng.Float64()
	right := g.rng.Float64()
	speed := g.rng.Intn(maxSpeedKph + 1)
	return scenario.New(kind, child, left, right, speed)
}

// Take draws n scenarios in sequence.
func (g *Generator) Take(n int) []scenario.Record {
	recs := make([]scenario.Record, 0, n)
	for i := 0; i < n; i++ {
		recs = append(recs, g.Next())
	}
	return recs
}

// Row is one labeled dataset row.
type Row struct {
	Scenario scenario.Record
	Mode     ethics.Mode
	Action   ethics.Action
}

// Label decides every record under one mode using a small worker pool.
// Output order matches input order regardless of worker count.
func Label(ctx context.Context, mode ethics.Mode, recs []scenario.Record, workers int) ([]Row, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(recs) {
		workers = len(recs)
	}
	rows := make([]Row, len(recs))
	if len(recs) == 0 {
		return rows, ctx.Err()
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < len(recs); i += workers {
				if ctx.Err() != nil {
					return
				}
				rows[i] = Row{
					Scenario: recs[i],
					Mode:     mode,
					Action:   policy.Decide(mode, recs[i]),
				}
			}
		}(w)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// Build generates one scenario set and writes a labeled CSV per mode.
// Every mode labels the same scenarios, so the files differ only in
// the mode and action columns.
func Build(ctx context.Context, cfg Config, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rows := cfg.Rows
	if rows <= 0 {
		rows = 10000
	}
	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "labeled_data"
	}

	recs := NewGenerator(cfg.Seed).Take(rows)

	paths := make([]string, 0, len(ethics.Modes()))
	for _, mode := range ethics.Modes() {
		labeled, err := Label(ctx, mode, recs, cfg.Workers)
		if err != nil {
			return nil, fmt.Errorf("label %s: %w", mode, err)
		}
		path, err := WriteCSV(outDir, mode, labeled)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", mode, err)
		}
		logger.Info("wrote labeled dataset",
			zap.String("path", path),
			zap.String("mode", string(mode)),
			zap.Int("rows", len(labeled)),
		)
		paths = append(paths, path)
	}
	return paths, nil
}
