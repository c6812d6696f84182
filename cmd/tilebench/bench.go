package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vellumview/tilecore/diskcache"
	"github.com/vellumview/tilecore/pageswitch"
	"github.com/vellumview/tilecore/ramcache"
	"github.com/vellumview/tilecore/scheduler"
	"github.com/vellumview/tilecore/tile"
	"github.com/vellumview/tilecore/tilerender"
	"github.com/vellumview/tilecore/viewport"
)

// BenchReport is the JSON artifact written at the end of a run, including
// any fail reasons and warnings.
type BenchReport struct {
	Pages          int           `json:"pages"`
	Switches       int           `json:"switches"`
	Duration       time.Duration `json:"duration_ns"`
	AverageLatency time.Duration `json:"average_latency_ns"`
	WorstLatency   time.Duration `json:"worst_latency_ns"`
	CacheHitRate   float64       `json:"cache_hit_rate"`
	Pass           bool          `json:"pass"`
	FailReasons    []string      `json:"fail_reasons,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
}

// BenchConfig parameterizes a run.
type BenchConfig struct {
	Document    tilerender.Document
	Duration    time.Duration
	ZoomPercent uint32

	// MaxAverageLatency fails the run if the mean switch latency exceeds
	// it. Zero disables the check.
	MaxAverageLatency time.Duration
}

// defaultMaxAverageLatency is the pass/fail threshold for SwitchToPage's
// mean latency when the caller doesn't override it: generous enough that
// the synthetic fake engine always passes, but still catches a pipeline
// that regresses to doing real work synchronously on every switch.
const defaultMaxAverageLatency = 50 * time.Millisecond

// Run drives a continuous-scroll benchmark: it walks forward through
// every page of cfg.Document, then back to the start, repeating until
// cfg.Duration elapses, recording each SwitchToPage's latency and the RAM
// cache's hit rate.
func Run(ctx context.Context, cfg BenchConfig) (BenchReport, error) {
	if cfg.Document == nil {
		return BenchReport{}, fmt.Errorf("tilebench: no document to benchmark")
	}
	maxAvg := cfg.MaxAverageLatency
	if maxAvg == 0 {
		maxAvg = defaultMaxAverageLatency
	}

	diskDir, err := os.MkdirTemp("", "tilebench-disk-cache")
	if err != nil {
		return BenchReport{}, fmt.Errorf("tilebench: create disk cache dir: %w", err)
	}
	defer os.RemoveAll(diskDir)

	disk, err := diskcache.Open(diskDir, 512<<20)
	if err != nil {
		return BenchReport{}, fmt.Errorf("tilebench: open disk cache: %w", err)
	}

	ram := ramcache.New(256 << 20)
	sched := scheduler.NewJobScheduler()
	vp := viewport.New(0, 0, 0, 1024, 1024, tile.BucketZoom(cfg.ZoomPercent))

	dprBucket := tile.BucketDPR(1.0)
	pool := scheduler.NewWorkerPool(sched, renderExecutor(cfg.Document, ram, cfg.ZoomPercent, dprBucket), scheduler.DefaultPoolConfig())
	defer pool.Shutdown()

	switcher := pageswitch.New(ram, disk, sched, &vp, dprBucket)

	pages := cfg.Document.PageCount()
	if pages == 0 {
		return BenchReport{}, fmt.Errorf("tilebench: document has no pages")
	}

	report := BenchReport{Pages: pages}
	start := time.Now()

	var total time.Duration
	var worst time.Duration
	page, direction := 0, 1
	for time.Since(start) < cfg.Duration {
		result, err := switcher.SwitchToPage(ctx, "bench", cfg.Document, uint16(page), cfg.ZoomPercent, tile.Rotate0)
		if err != nil {
			report.FailReasons = append(report.FailReasons, fmt.Sprintf("page %d: %v", page, err))
			page = advance(page, &direction, pages)
			continue
		}

		report.Switches++
		total += result.ElapsedTime
		if result.ElapsedTime > worst {
			worst = result.ElapsedTime
		}

		page = advance(page, &direction, pages)
	}
	report.Duration = time.Since(start)

	if report.Switches > 0 {
		report.AverageLatency = total / time.Duration(report.Switches)
	}
	report.WorstLatency = worst
	report.CacheHitRate = hitRate(ram.Stats())

	evaluate(&report, maxAvg)
	return report, nil
}

func hitRate(s ramcache.Stats) float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func advance(page int, direction *int, pages int) int {
	page += *direction
	if page >= pages {
		page = pages - 1
		*direction = -1
	} else if page < 0 {
		page = 0
		*direction = 1
	}
	return page
}

func evaluate(report *BenchReport, maxAvg time.Duration) {
	report.Pass = true
	if report.Switches == 0 {
		report.Pass = false
		report.FailReasons = append(report.FailReasons, "no successful page switches")
	}
	if maxAvg > 0 && report.AverageLatency > maxAvg {
		report.Pass = false
		report.FailReasons = append(report.FailReasons, fmt.Sprintf(
			"average switch latency %s exceeds threshold %s", report.AverageLatency, maxAvg))
	}
	if report.CacheHitRate < 0.5 && report.Switches > report.Pages {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"RAM cache hit rate %.2f is low for a repeated scroll pattern", report.CacheHitRate))
	}
}

// renderExecutor services KindRenderTile prefetch jobs fired by
// pageswitch, rendering the single requested tile and inserting it into
// ram — mirroring the host's real worker-pool executor.
func renderExecutor(doc tilerender.Document, ram *ramcache.Cache, zoomPercent uint32, dprBucket uint16) scheduler.Executor {
	return func(job *scheduler.Job, token scheduler.CancellationToken) error {
		if job.Type.Kind != scheduler.KindRenderTile {
			return nil
		}
		if token.IsCancelled() {
			return nil
		}
		params := job.Type.RenderTile

		page, err := doc.Page(int(params.PageIndex))
		if err != nil {
			return err
		}
		pageWidth, pageHeight, err := page.SizePoints(context.Background())
		if err != nil {
			return err
		}

		profile := tile.Crisp
		if params.IsPreview {
			profile = tile.Preview
		}

		tiles, err := tilerender.RenderPageTiles(context.Background(), page, params.PageIndex,
			pageWidth, pageHeight, zoomPercent, tile.Rotation(params.Rotation), profile, dprBucket)
		if err != nil {
			return err
		}

		for _, t := range tiles {
			if t.ID.Coord.X == int32(params.TileX) && t.ID.Coord.Y == int32(params.TileY) {
				ram.Put(t.ID, t.Buf)
				return nil
			}
		}
		return nil
	}
}
