// Package budget computes the Adaptive Budget: a total memory ceiling
// derived from physical RAM, split across the viewport/thumbnail/inflight
// sub-budgets that size the RAM, GPU, and prefetch caches, plus the
// memory pressure state derived from those caches' occupancy, which the
// progressive upgrader consults.
package budget

import (
	"os"
	"strconv"
)

const (
	minTotal = 256 * 1 << 20 // 256 MiB
	maxTotal = 4 * 1 << 30   // 4 GiB

	giB = 1 << 30
)

// ramOverrideEnv, when set, forces the physical RAM figure this package
// bases its tiered ratio on, bypassing host detection. Useful for tests
// and for hosts where /proc/meminfo is unavailable or sandboxed.
const ramOverrideEnv = "TILECORE_TOTAL_RAM_GB"

// fallbackRAMBytes is assumed when physical RAM can't be detected and no
// override is set.
const fallbackRAMBytes = 8 * giB

// Split is the proportional break-down of the total budget across the
// three consumers that drive cache sizing.
type Split struct {
	Total     int64
	Viewport  int64
	Thumbnail int64
	Inflight  int64
}

const (
	viewportRatio  = 0.70
	thumbnailRatio = 0.20
	inflightRatio  = 0.10
)

// ratioTier maps a physical RAM threshold (in bytes, inclusive lower
// bound) to the fraction of it allotted as the total budget.
type ratioTier struct {
	minRAM int64
	ratio  float64
}

// tiers must stay sorted ascending by minRAM; TotalForRAM walks it to
// find the highest tier the host's RAM qualifies for.
var tiers = []ratioTier{
	{minRAM: 0, ratio: 0.12},
	{minRAM: 8 * giB, ratio: 0.12},
	{minRAM: 16 * giB, ratio: 0.14},
	{minRAM: 32 * giB, ratio: 0.16},
	{minRAM: 64 * giB, ratio: 0.18},
}

// TotalForRAM returns the tiered-ratio total budget for physicalRAMBytes,
// clamped to [minTotal, maxTotal].
func TotalForRAM(physicalRAMBytes int64) int64 {
	ratio := tiers[0].ratio
	for _, t := range tiers {
		if physicalRAMBytes >= t.minRAM {
			ratio = t.ratio
		}
	}
	total := int64(float64(physicalRAMBytes) * ratio)
	if total < minTotal {
		return minTotal
	}
	if total > maxTotal {
		return maxTotal
	}
	return total
}

// SplitTotal divides a total budget into its viewport/thumbnail/inflight
// sub-budgets at the fixed 70/20/10 ratios.
func SplitTotal(total int64) Split {
	return Split{
		Total:     total,
		Viewport:  int64(float64(total) * viewportRatio),
		Thumbnail: int64(float64(total) * thumbnailRatio),
		Inflight:  int64(float64(total) * inflightRatio),
	}
}

// DetectPhysicalRAM resolves the physical RAM figure used to derive the
// budget: an env override first, then a best-effort /proc/meminfo read,
// falling back to a conservative assumption if neither is available.
func DetectPhysicalRAM() int64 {
	if v, ok := os.LookupEnv(ramOverrideEnv); ok {
		if gb, err := strconv.ParseFloat(v, 64); err == nil && gb > 0 {
			return int64(gb * float64(giB))
		}
	}
	if b, ok := readProcMeminfo(); ok {
		return b
	}
	return fallbackRAMBytes
}

// New derives the Adaptive Budget split for the host's detected physical
// RAM.
func New() Split {
	return SplitTotal(TotalForRAM(DetectPhysicalRAM()))
}

// PressureState is the memory pressure level derived from cache occupancy
// relative to the total budget.
type PressureState int

const (
	// Normal is <70% utilization.
	Normal PressureState = iota
	// Warm is 70-85% utilization. No component in this module acts on
	// Warm; the prefetch margin is not reduced.
	Warm
	// Hot is 85-95% utilization: upgrader.Upgrader stops scheduling Crisp
	// upgrades. GPU cache eviction is not changed by this state.
	Hot
	// Critical is >95% utilization: upgrader.Upgrader stops scheduling
	// Crisp upgrades, as in Hot. Queued jobs are not cancelled and Preview
	// tiles are not evicted because of this state.
	Critical
)

// String implements fmt.Stringer.
func (p PressureState) String() string {
	switch p {
	case Normal:
		return "Normal"
	case Warm:
		return "Warm"
	case Hot:
		return "Hot"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

const (
	warmThreshold     = 0.70
	hotThreshold      = 0.85
	criticalThreshold = 0.95
)

// Monitor tracks rolling memory usage against a Split and derives the
// current PressureState. State transitions are level-triggered on each
// Sample call, not hysteretic: a single sample crossing a threshold
// changes state immediately rather than debouncing across samples.
type Monitor struct {
	split Split
	state PressureState
}

// NewMonitor creates a pressure monitor over the given budget split,
// starting in the Normal state.
func NewMonitor(split Split) *Monitor {
	return &Monitor{split: split, state: Normal}
}

// Sample records the current decoded (RAM), texture (GPU), and inflight
// byte counts and recomputes the pressure state from their total against
// the monitor's budget.
func (m *Monitor) Sample(decoded, texture, inflight int64) PressureState {
	used := decoded + texture + inflight
	if m.split.Total <= 0 {
		m.state = Critical
		return m.state
	}
	utilization := float64(used) / float64(m.split.Total)
	switch {
	case utilization > criticalThreshold:
		m.state = Critical
	case utilization > hotThreshold:
		m.state = Hot
	case utilization > warmThreshold:
		m.state = Warm
	default:
		m.state = Normal
	}
	return m.state
}

// State returns the most recently computed pressure state without
// sampling.
func (m *Monitor) State() PressureState { return m.state }

// Split returns the budget split this monitor evaluates samples against.
func (m *Monitor) Split() Split { return m.split }
