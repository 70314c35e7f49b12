package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/flappy/game"
	"github.com/pthm-cable/flappy/neural"
)

// GenerationStats summarises one evaluated generation.
type GenerationStats struct {
	Generation int `csv:"generation"`
	Members    int `csv:"members"`
	Species    int `csv:"species"`

	// Species distribution
	SpeciesLargest   int     `csv:"species_largest"`
	SpeciesSmallest  int     `csv:"species_smallest"`
	SpeciesStaleness float64 `csv:"species_staleness"`

	// Round outcome
	Score int `csv:"score"`
	Ticks int `csv:"ticks"`

	// Retirements by cause
	DeathsPipe   int `csv:"deaths_pipe"`
	DeathsBounds int `csv:"deaths_bounds"`
	Capped       int `csv:"capped"`
	Survivors    int `csv:"survivors"`

	// Fitness distribution
	FitnessBest float64 `csv:"fitness_best"`
	FitnessMean float64 `csv:"fitness_mean"`
	FitnessStd  float64 `csv:"fitness_std"`
	FitnessP10  float64 `csv:"fitness_p10"`
	FitnessP50  float64 `csv:"fitness_p50"`
	FitnessP90  float64 `csv:"fitness_p90"`

	// Lifetime distribution in ticks
	LifetimeMean float64 `csv:"lifetime_mean"`
	LifetimeMax  int     `csv:"lifetime_max"`

	DurationMS int64 `csv:"duration_ms"`
}

// Percentiles returns the p10, p50 and p90 empirical quantiles of values.
// values need not be sorted. Returns zeros if values is empty.
func Percentiles(values []float64) (p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.10, stat.Empirical, sorted, nil),
		stat.Quantile(0.50, stat.Empirical, sorted, nil),
		stat.Quantile(0.90, stat.Empirical, sorted, nil)
}

// ComputeFitnessStats calculates best, mean, std and percentiles.
// The standard deviation is the sample deviation and 0 for fewer than two values.
func ComputeFitnessStats(values []float64) (best, mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0, 0
	}
	best = floats.Max(values)
	mean = stat.Mean(values, nil)
	if len(values) > 1 {
		std = stat.StdDev(values, nil)
	}
	p10, p50, p90 = Percentiles(values)
	return best, mean, std, p10, p50, p90
}

// ComputeGenerationStats builds the summary for a finished generation.
func ComputeGenerationStats(report game.GenerationReport, species neural.SpeciesStats) GenerationStats {
	pipe, bounds, capped, alive := report.Round.Deaths()
	s := GenerationStats{
		Generation:       report.Generation,
		Members:          report.Members,
		Species:          species.Count,
		SpeciesLargest:   species.LargestSize,
		SpeciesSmallest:  species.SmallestSize,
		SpeciesStaleness: species.AverageStaleness,
		Score:            report.Round.Score,
		Ticks:        report.Round.Ticks,
		DeathsPipe:   pipe,
		DeathsBounds: bounds,
		Capped:       capped,
		Survivors:    alive,
		DurationMS:   report.Duration.Milliseconds(),
	}

	n := len(report.Round.Results)
	if n == 0 {
		return s
	}

	fitness := make([]float64, n)
	lifetimes := make([]float64, n)
	for i, res := range report.Round.Results {
		fitness[i] = res.Fitness
		lifetimes[i] = float64(res.Tick)
		s.LifetimeMax = max(s.LifetimeMax, res.Tick)
	}
	s.FitnessBest, s.FitnessMean, s.FitnessStd, s.FitnessP10, s.FitnessP50, s.FitnessP90 = ComputeFitnessStats(fitness)
	s.LifetimeMean = stat.Mean(lifetimes, nil)
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("members", s.Members),
		slog.Int("species", s.Species),
		slog.Int("species_largest", s.SpeciesLargest),
		slog.Int("species_smallest", s.SpeciesSmallest),
		slog.Float64("species_staleness", s.SpeciesStaleness),
		slog.Int("score", s.Score),
		slog.Int("ticks", s.Ticks),
		slog.Int("deaths_pipe", s.DeathsPipe),
		slog.Int("deaths_bounds", s.DeathsBounds),
		slog.Int("capped", s.Capped),
		slog.Int("survivors", s.Survivors),
		slog.Float64("fitness_best", s.FitnessBest),
		slog.Float64("fitness_mean", s.FitnessMean),
		slog.Float64("fitness_std", s.FitnessStd),
		slog.Float64("fitness_p50", s.FitnessP50),
		slog.Float64("lifetime_mean", s.LifetimeMean),
		slog.Int64("duration_ms", s.DurationMS),
	)
}

// LogStats logs the generation summary using slog.
func (s GenerationStats) LogStats() {
	slog.Info("generation_complete", "stats", s)
}

// DeathRecord is one bird leaving a round.
type DeathRecord struct {
	Generation int     `csv:"generation"`
	MemberID   int     `csv:"member_id"`
	Tick       int     `csv:"tick"`
	Cause      string  `csv:"cause"`
	Fitness    float64 `csv:"fitness"`
	Score      int     `csv:"score"`
}

// DeathRecords flattens a round's results into CSV rows.
func DeathRecords(generation int, round game.RoundReport) []DeathRecord {
	out := make([]DeathRecord, 0, len(round.Results))
	for _, res := range round.Results {
		out = append(out, DeathRecord{
			Generation: generation,
			MemberID:   res.MemberID,
			Tick:       res.Tick,
			Cause:      res.Fate.String(),
			Fitness:    res.Fitness,
			Score:      res.Score,
		})
	}
	return out
}
