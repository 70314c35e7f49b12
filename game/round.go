package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flappy/components"
	"github.com/pthm-cable/flappy/config"
)

// ErrAborted is returned when the user or the process asks the simulation to stop.
// It propagates unchanged through Round, Runner and Trainer.
var ErrAborted = errors.New("simulation aborted")

// RoundState is the evaluator state machine.
type RoundState uint8

const (
	RoundRunning RoundState = iota
	RoundEnded
)

func (s RoundState) String() string {
	if s == RoundRunning {
		return "running"
	}
	return "ended"
}

// AgentResult records how a bird left the round.
type AgentResult struct {
	MemberID int
	Tick     int // tick the bird left on (1-based)
	Fate     Fate
	Fitness  float64 // accumulator value after the final adjustment
	Score    int     // pipes passed when it left
}

// RoundReport summarises a finished (or aborted) round.
type RoundReport struct {
	Ticks   int
	Score   int
	Results []AgentResult
	Aborted bool
}

// Deaths counts results by fate.
func (r RoundReport) Deaths() (pipe, bounds, capped, alive int) {
	for _, res := range r.Results {
		switch res.Fate {
		case FatePipe:
			pipe++
		case FateBounds:
			bounds++
		case FateCapped:
			capped++
		case FateAlive:
			alive++
		}
	}
	return
}

// RoundOptions tune one round.
type RoundOptions struct {
	Stop       bool // retire survivors once the score cap is exceeded
	MaxTicks   int  // 0 = unlimited
	Workers    int  // agent stepping goroutines; <= 1 runs inline
	Generation int
	Gaps       GapSampler         // nil = random with seed 1
	Palette    components.Palette // nil = fixed red
}

// Round is the per-generation simulation: every live bird is an ECS entity
// carrying its body, decider and fitness accumulator together, so removing a
// bird can never misalign the three.
type Round struct {
	cfg    *config.Config
	world  *ecs.World
	mapper *ecs.Map4[
		components.Body,
		components.Brain,
		components.Lineage,
		components.Plumage,
	]
	filter *ecs.Filter4[
		components.Body,
		components.Brain,
		components.Lineage,
		components.Plumage,
	]

	stream ObstacleStream
	policy Policy

	state      RoundState
	tick       int
	maxTicks   int
	generation int
	live       int
	results    []AgentResult

	stepper *stepper
}

// NewRound spawns one bird per member, in member order.
func NewRound(cfg *config.Config, members []Member, opts RoundOptions) *Round {
	gaps := opts.Gaps
	if gaps == nil {
		gaps = NewRandomGaps(1)
	}
	return NewRoundWithStream(cfg, members, NewPipeStream(cfg, gaps), opts)
}

// NewRoundWithStream is NewRound with a caller-supplied obstacle stream.
func NewRoundWithStream(cfg *config.Config, members []Member, stream ObstacleStream, opts RoundOptions) *Round {
	world := ecs.NewWorld()
	r := &Round{
		cfg:   cfg,
		world: world,
		mapper: ecs.NewMap4[
			components.Body,
			components.Brain,
			components.Lineage,
			components.Plumage,
		](world),
		filter: ecs.NewFilter4[
			components.Body,
			components.Brain,
			components.Lineage,
			components.Plumage,
		](world),
		stream:     stream,
		policy:     PolicyFromConfig(cfg, opts.Stop),
		maxTicks:   opts.MaxTicks,
		generation: opts.Generation,
		results:    make([]AgentResult, 0, len(members)),
		stepper:    newStepper(opts.Workers),
	}

	palette := opts.Palette
	if palette == nil {
		palette = components.FixedPalette(components.Plumage{R: 200})
	}

	for _, m := range members {
		r.spawn(m, palette.Next())
	}
	if r.live == 0 {
		r.state = RoundEnded
	}
	return r
}

func (r *Round) spawn(m Member, colour components.Plumage) {
	fitness := m.Fitness
	if fitness == nil {
		fitness = new(float64)
	}
	body := components.Body{
		X:    r.cfg.Bird.StartX,
		Y:    r.cfg.Derived.StartY,
		Size: r.cfg.Bird.Size,
	}
	brain := components.Brain{Decider: m.Decider}
	lineage := components.Lineage{MemberID: m.ID, Fitness: fitness}
	r.mapper.NewEntity(&body, &brain, &lineage, &colour)
	r.live++
}

// State returns the evaluator state.
func (r *Round) State() RoundState { return r.state }

// Live returns the number of birds still in the round.
func (r *Round) Live() int { return r.live }

// Score returns the number of pipes passed.
func (r *Round) Score() int { return r.stream.Score() }

// Tick returns the number of completed ticks.
func (r *Round) Tick() int { return r.tick }

// Stream returns the obstacle stream.
func (r *Round) Stream() ObstacleStream { return r.stream }

// Step advances the round by one tick:
//  1. scroll the pipe
//  2. step every live bird (reward, fall, decide, jump, judge)
//  3. remove dead and retired birds together with their bookkeeping
//  4. recycle the pipe if it has left the screen
//
// A cancelled ctx stops mid-tick; birds already stepped in that tick are
// discarded and ErrAborted is returned.
func (r *Round) Step(ctx context.Context) error {
	if r.state == RoundEnded {
		return nil
	}

	r.stream.Advance()
	pipe := r.stream.Active()
	capped := r.policy.Capped(r.stream.Score())

	// Phase A: snapshot live birds in query order
	r.stepper.snapshot(r.filter)

	// Phase B: compute intents
	if err := r.stepper.compute(ctx, r.cfg, r.policy, pipe, capped); err != nil {
		r.state = RoundEnded
		return err
	}

	// Phase C: apply intents and retire birds
	r.tick++
	r.apply()

	r.stream.Recycle()

	if r.live == 0 {
		r.state = RoundEnded
	} else if r.maxTicks > 0 && r.tick >= r.maxTicks {
		r.recordSurvivors()
		r.state = RoundEnded
	}
	return nil
}

// apply writes stepped state back to the world. Removals happen after the
// query that produced the snapshot has been fully drained.
func (r *Round) apply() {
	score := r.stream.Score()
	for i := range r.stepper.snapshots {
		snap := &r.stepper.snapshots[i]
		in := &r.stepper.intents[i]

		body, _, lineage, _ := r.mapper.Get(snap.Entity)
		body.Y = in.Y
		*lineage.Fitness += in.Reward

		if in.Fate == FateAlive {
			continue
		}
		r.results = append(r.results, AgentResult{
			MemberID: lineage.MemberID,
			Tick:     r.tick,
			Fate:     in.Fate,
			Fitness:  *lineage.Fitness,
			Score:    score,
		})
		r.world.RemoveEntity(snap.Entity)
		r.live--
	}
}

func (r *Round) recordSurvivors() {
	score := r.stream.Score()
	query := r.filter.Query()
	for query.Next() {
		_, _, lineage, _ := query.Get()
		r.results = append(r.results, AgentResult{
			MemberID: lineage.MemberID,
			Tick:     r.tick,
			Fate:     FateAlive,
			Fitness:  *lineage.Fitness,
			Score:    score,
		})
	}
}

// Report returns the results gathered so far.
func (r *Round) Report() RoundReport {
	return RoundReport{
		Ticks:   r.tick,
		Score:   r.stream.Score(),
		Results: append([]AgentResult(nil), r.results...),
	}
}

// Frame captures the current geometry for a renderer.
func (r *Round) Frame() Frame {
	birds := make([]BirdView, 0, r.live)
	query := r.filter.Query()
	for query.Next() {
		body, _, lineage, plumage := query.Get()
		birds = append(birds, BirdView{
			MemberID: lineage.MemberID,
			Body:     *body,
			Plumage:  *plumage,
		})
	}
	return Frame{
		Birds:      birds,
		Pipes:      r.stream.Pipes(),
		Score:      r.stream.Score(),
		Tick:       r.tick,
		Generation: r.generation,
		Alive:      r.live,
		Width:      r.cfg.Derived.ScreenW,
		Height:     r.cfg.Derived.ScreenH,
	}
}

// componentCounts counts each component kind independently.
func (r *Round) componentCounts() (bodies, brains, lineages int) {
	bq := ecs.NewFilter1[components.Body](r.world).Query()
	for bq.Next() {
		bodies++
	}
	nq := ecs.NewFilter1[components.Brain](r.world).Query()
	for nq.Next() {
		brains++
	}
	lq := ecs.NewFilter1[components.Lineage](r.world).Query()
	for lq.Next() {
		lineages++
	}
	return
}

// stepBird runs one bird's tick in isolation. It touches nothing shared.
func stepBird(cfg *config.Config, policy Policy, pipe Pipe, capped bool, snap *agentSnapshot, inputs []float64) (agentIntent, []float64, error) {
	body := snap.Body
	reward := cfg.Fitness.SurvivalReward

	body.Advance(cfg.Bird.Gravity)

	inputs = Sense(body, pipe, inputs)
	out, err := snap.Decider.Decide(inputs)
	if err != nil {
		return agentIntent{}, inputs, fmt.Errorf("member %d decide: %w", snap.MemberID, err)
	}
	if len(out) == 0 {
		return agentIntent{}, inputs, fmt.Errorf("member %d decide: empty output", snap.MemberID)
	}
	if out[0] > cfg.Bird.JumpThreshold {
		body.Jump(cfg.Bird.Jump)
	}

	fate := policy.Judge(body, pipe)
	switch {
	case fate.Dead():
		reward -= cfg.Fitness.DeathPenalty
	case capped:
		fate = FateCapped
		reward += cfg.Fitness.CapBonus
	}
	return agentIntent{Y: body.Y, Reward: reward, Fate: fate}, inputs, nil
}
