package simulation

import (
	"fmt"
	"math"
	randv2 "math/rand/v2"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/sharpline/sharpline/pkg/types"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat/distuv"
)

// Metric selects which simulated quantity is compared against the line.
type Metric string

const (
	// MetricTotal is the combined score of both sides (totals markets).
	MetricTotal Metric = "total"
	// MetricMargin is home score minus away score (spread markets).
	MetricMargin Metric = "margin"
	// MetricValue is the single-entity stat value (player props).
	MetricValue Metric = "value"
)

// Config holds simulation kernel configuration.
type Config struct {
	Draws       int
	Correlation float64
	// Skewness enables the skew-normal mode when SkewMode is set; combined
	// score distributions show a mild right skew that a plain normal misses.
	Skewness float64
	SkewMode bool

	// Overtime is a discrete independent event layered on top of the
	// continuous draw; when it fires, an extra-points draw is added to the
	// total unconditionally.
	OvertimeProb       float64
	OvertimePointsMean float64
	OvertimePointsStd  float64

	// ScoreFloor clamps each side's simulated score to a realistic minimum.
	ScoreFloor float64

	// Seed makes runs bit-identical when non-zero; zero seeds from the clock.
	Seed   int64
	Logger *zap.Logger
}

// Kernel draws correlated paired samples from the projected distributions
// and turns them into over/under/push probabilities against a line.
// All arithmetic is pure compute; the kernel holds no cross-request state.
type Kernel struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a new simulation kernel.
func New(cfg Config) *Kernel {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Kernel{cfg: cfg, logger: cfg.Logger}
}

// Run simulates cfg.Draws paired outcomes from the projection and evaluates
// the chosen metric against the line. Given the same seed and inputs the
// result is exactly reproducible.
func (k *Kernel) Run(proj *types.Projection, line float64, metric Metric) (*types.SimulationResult, error) {
	if proj == nil {
		return nil, fmt.Errorf("projection is nil")
	}
	if proj.HomeStdDev <= 0 {
		return nil, fmt.Errorf("home std dev must be positive, got %f", proj.HomeStdDev)
	}
	if metric != MetricValue && proj.AwayStdDev <= 0 {
		return nil, fmt.Errorf("away std dev must be positive, got %f", proj.AwayStdDev)
	}

	start := time.Now()

	seed := k.cfg.Seed
	seeded := seed != 0
	if !seeded {
		seed = time.Now().UnixNano()
	}

	src := randv2.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	rng := randv2.New(src)
	unit := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	values := make([]float64, k.cfg.Draws)
	overtimes := 0

	for i := 0; i < k.cfg.Draws; i++ {
		var value float64

		if metric == MetricValue {
			z := k.drawStandard(unit)
			value = proj.HomeMean + proj.HomeStdDev*z
			if value < 0 {
				value = 0
			}
			value = math.Round(value)
		} else {
			zh, za := k.drawPair(unit)

			home := proj.HomeMean + proj.HomeStdDev*zh
			away := proj.AwayMean + proj.AwayStdDev*za
			if home < k.cfg.ScoreFloor {
				home = k.cfg.ScoreFloor
			}
			if away < k.cfg.ScoreFloor {
				away = k.cfg.ScoreFloor
			}
			home = math.Round(home)
			away = math.Round(away)

			switch metric {
			case MetricMargin:
				value = home - away
			default:
				value = home + away
				if rng.Float64() < k.cfg.OvertimeProb {
					extra := k.cfg.OvertimePointsMean + k.cfg.OvertimePointsStd*unit.Rand()
					if extra < 0 {
						extra = 0
					}
					value += math.Round(extra)
					overtimes++
				}
			}
		}

		values[i] = value
	}

	result, err := k.summarize(values, line)
	if err != nil {
		return nil, fmt.Errorf("summarize draws: %w", err)
	}
	result.Seed = seed
	result.Seeded = seeded
	result.OvertimeCount = overtimes

	elapsed := time.Since(start)
	SimulationDurationSeconds.Observe(elapsed.Seconds())
	SimulationDrawsTotal.Add(float64(k.cfg.Draws))

	k.logger.Debug("simulation-complete",
		zap.Int("draws", k.cfg.Draws),
		zap.String("metric", string(metric)),
		zap.Float64("line", line),
		zap.Float64("p-over", result.POver),
		zap.Float64("p-under", result.PUnder),
		zap.Float64("p-push", result.PPush),
		zap.Int("overtimes", overtimes),
		zap.Duration("elapsed", elapsed))

	return result, nil
}

// drawStandard returns one standard variate, skewed when skew mode is on.
func (k *Kernel) drawStandard(unit distuv.Normal) float64 {
	if !k.cfg.SkewMode {
		return unit.Rand()
	}
	return k.skewVariate(unit)
}

// drawPair returns two standard variates with the configured correlation.
// Plain mode uses the Cholesky construction; skew mode mixes a shared normal
// with independent skewed components instead of a covariance matrix.
func (k *Kernel) drawPair(unit distuv.Normal) (float64, float64) {
	rho := k.cfg.Correlation

	if !k.cfg.SkewMode {
		z1 := unit.Rand()
		z2 := unit.Rand()
		return z1, rho*z1 + math.Sqrt(1-rho*rho)*z2
	}

	if rho < 0 {
		rho = 0
	}
	shared := unit.Rand()
	eh := k.skewVariate(unit)
	ea := k.skewVariate(unit)
	w := math.Sqrt(rho)
	v := math.Sqrt(1 - rho)
	return w*shared + v*eh, w*shared + v*ea
}

// skewVariate draws one skew-normal variate standardized to mean 0, var 1.
func (k *Kernel) skewVariate(unit distuv.Normal) float64 {
	alpha := k.cfg.Skewness
	delta := alpha / math.Sqrt(1+alpha*alpha)

	u0 := unit.Rand()
	u1 := unit.Rand()
	x := delta*math.Abs(u0) + math.Sqrt(1-delta*delta)*u1

	mean := delta * math.Sqrt(2/math.Pi)
	variance := 1 - 2*delta*delta/math.Pi
	return (x - mean) / math.Sqrt(variance)
}

// summarize computes probabilities, standard errors, moments and percentile
// bands from the simulated values.
func (k *Kernel) summarize(values []float64, line float64) (*types.SimulationResult, error) {
	n := len(values)
	over, under, push := 0, 0, 0
	for _, v := range values {
		switch {
		case v > line:
			over++
		case v < line:
			under++
		default:
			push++
		}
	}

	nf := float64(n)
	pOver := float64(over) / nf
	pUnder := float64(under) / nf
	pPush := float64(push) / nf

	mean, err := stats.Mean(values)
	if err != nil {
		return nil, err
	}
	median, err := stats.Median(values)
	if err != nil {
		return nil, err
	}
	stdDev, err := stats.StandardDeviation(values)
	if err != nil {
		return nil, err
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	bands := types.PercentileBands{}
	cuts := []struct {
		pct  float64
		dest *float64
	}{
		{5, &bands.P5}, {10, &bands.P10}, {25, &bands.P25}, {50, &bands.P50},
		{75, &bands.P75}, {90, &bands.P90}, {95, &bands.P95},
	}
	for _, c := range cuts {
		v, err := stats.Percentile(sorted, c.pct)
		if err != nil {
			return nil, err
		}
		*c.dest = v
	}

	return &types.SimulationResult{
		Draws:       n,
		Line:        line,
		POver:       pOver,
		PUnder:      pUnder,
		PPush:       pPush,
		StdErrOver:  binomialStdErr(pOver, nf),
		StdErrUnder: binomialStdErr(pUnder, nf),
		StdErrPush:  binomialStdErr(pPush, nf),
		Mean:        mean,
		Median:      median,
		StdDev:      stdDev,
		Percentiles: bands,
	}, nil
}

func binomialStdErr(p, n float64) float64 {
	return math.Sqrt(p * (1 - p) / n)
}
