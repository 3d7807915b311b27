// Package scoring implements the species scoring engine: a shared contract
// of named weighted factors, multiplicative bonuses, hard safety caps, and
// season gates, plus one model per target species.
//
// Evaluation order is fixed: season/regulation gate, base weighted sum,
// bonus multipliers in model-declaration order, safety cap, final clamp.
// Models are pure functions over immutable inputs and never error.
package scoring

import (
	"fmt"
	"math"

	"fishcast/internal/types"
)

// SafetyCapScore is the ceiling applied to the total when any safety check
// trips. A spot that is dangerous can never score above "marginal".
const SafetyCapScore = 3.0

// Model is the contract every species model implements. Score must not
// mutate its inputs and must always return a well-formed result.
type Model interface {
	Species() types.Species
	Score(sample types.Sample, actx types.AlgorithmContext, tide *types.TideState) types.ScoreResult
}

// factor is one named component under evaluation. Scores outside [0,1] are
// clamped at finalize time as a defensive measure.
type factor struct {
	name        string
	value       string
	weight      float64
	score       float64
	description string
}

// bonus is one multiplicative adjustment, applied after the base weighted
// sum in declaration order.
type bonus struct {
	multiplier float64
	reason     string
}

// evaluation accumulates a model's factors, bonuses, and safety findings
// before finalize folds them into a ScoreResult.
type evaluation struct {
	species  types.Species
	factors  []factor
	bonuses  []bonus
	warnings []string
	advice   []string
	unsafe   bool
	debug    map[string]any
}

func newEvaluation(species types.Species) *evaluation {
	return &evaluation{species: species}
}

func (e *evaluation) addFactor(name, value string, weight, score float64, description string) {
	e.factors = append(e.factors, factor{
		name: name, value: value, weight: weight, score: score, description: description,
	})
}

func (e *evaluation) addBonus(multiplier float64, reason string) {
	e.bonuses = append(e.bonuses, bonus{multiplier: multiplier, reason: reason})
}

// markUnsafe trips the safety cap and records the warning.
func (e *evaluation) markUnsafe(warning string) {
	e.unsafe = true
	e.warnings = append(e.warnings, warning)
}

func (e *evaluation) addAdvice(a string) {
	e.advice = append(e.advice, a)
}

func (e *evaluation) setDebug(key string, v any) {
	if e.debug == nil {
		e.debug = map[string]any{}
	}
	e.debug[key] = v
}

// finalize folds the evaluation into a ScoreResult: weighted sum to [0,10],
// bonuses in declaration order, safety cap, final clamp.
func (e *evaluation) finalize() types.ScoreResult {
	var sum float64
	factors := make(map[string]types.Factor, len(e.factors))
	for _, f := range e.factors {
		score := clamp01(f.score)
		sum += score * f.weight
		factors[f.name] = types.Factor{
			Value:       f.value,
			Weight:      f.weight,
			Score:       score,
			Description: f.description,
		}
	}

	total := clamp(sum*10, 0, 10)
	for _, b := range e.bonuses {
		total *= b.multiplier
		e.setDebug("bonus:"+b.reason, b.multiplier)
	}
	total = clamp(total, 0, 10)

	if e.unsafe && total > SafetyCapScore {
		total = SafetyCapScore
	}

	return types.ScoreResult{
		Species:    e.species,
		Total:      total,
		Factors:    factors,
		IsSafe:     !e.unsafe,
		Warnings:   e.warnings,
		IsInSeason: true,
		Advice:     e.advice,
		Debug:      e.debug,
	}
}

// closedSeason is the short-circuit result for a closed regulatory window:
// total 0, no factors evaluated, an explanatory message.
func closedSeason(species types.Species, message string) types.ScoreResult {
	return types.ScoreResult{
		Species:    species,
		Total:      0,
		Factors:    map[string]types.Factor{},
		IsSafe:     true,
		IsInSeason: false,
		Advice:     []string{message},
	}
}

// hardStop is the immediate-zero result for a tripped mechanical gate:
// total 0, no factors, guidance attached, flagged unsafe.
func hardStop(species types.Species, warning, guidance string) types.ScoreResult {
	return types.ScoreResult{
		Species:    species,
		Total:      0,
		Factors:    map[string]types.Factor{},
		IsSafe:     false,
		Warnings:   []string{warning},
		IsInSeason: true,
		Advice:     []string{guidance},
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

// expDecay maps a non-negative magnitude to (0,1] with e-folding constant
// kappa: 1 at zero, ~0.37 at kappa.
func expDecay(v, kappa float64) float64 {
	if v <= 0 {
		return 1
	}
	return math.Exp(-v / kappa)
}

// deref returns the pointed-to value, or fallback when absent.
func deref(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// fmtVal renders a reading with its unit for factor display.
func fmtVal(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%s", *v, unit)
}

// angularDiff returns the absolute smallest angle between two headings.
func angularDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Registry maps species to their models in declaration order.
type Registry struct {
	models map[types.Species]Model
	order  []types.Species
}

// NewRegistry builds the default registry holding every species model.
func NewRegistry() *Registry {
	r := &Registry{models: map[types.Species]Model{}}
	for _, m := range []Model{
		NewSeabassModel(),
		NewRockfishModel(),
		NewTautogModel(),
		NewOctopusModel(),
		NewCrabModel(),
		NewSquidModel(),
	} {
		r.models[m.Species()] = m
		r.order = append(r.order, m.Species())
	}
	return r
}

// Model returns the model for a species, or nil when none is registered.
func (r *Registry) Model(s types.Species) Model {
	return r.models[s]
}

// Species lists the registered species in declaration order.
func (r *Registry) Species() []types.Species {
	out := make([]types.Species, len(r.order))
	copy(out, r.order)
	return out
}

// ScoreAll evaluates the requested species (or all when none given) against
// one sample.
func (r *Registry) ScoreAll(sample types.Sample, actx types.AlgorithmContext, tide *types.TideState, species ...types.Species) map[types.Species]types.ScoreResult {
	if len(species) == 0 {
		species = r.order
	}
	out := make(map[types.Species]types.ScoreResult, len(species))
	for _, s := range species {
		m := r.models[s]
		if m == nil {
			continue
		}
		out[s] = m.Score(sample, actx, tide)
	}
	return out
}
