package parking

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/zeu5/self-parking/agent"
	"github.com/zeu5/self-parking/config"
	"github.com/zeu5/self-parking/core"
	"github.com/zeu5/self-parking/sim"
	"github.com/zeu5/self-parking/store"
)

func newEnv(t *testing.T, world sim.Config) *ParkingEnv {
	t.Helper()
	env, err := NewParkingEnv(ParkingEnvConfig{
		Agent:  agent.DefaultConfig(),
		World:  world,
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })
	return env
}

func drive(t *testing.T, env *ParkingEnv, cmd agent.ActionCommand, limit int) (*core.Trace, *core.Transition) {
	t.Helper()
	trace := core.NewTrace()
	var last *core.Transition
	for i := 0; i < limit; i++ {
		tr, err := env.Step(cmd.Vector(), nil)
		require.NoError(t, err)
		trace.AddStep(&core.Step{Transition: tr})
		last = tr
		if tr.Done {
			break
		}
	}
	return trace, last
}

func TestEnvParksStraightAhead(t *testing.T) {
	env := newEnv(t, sim.DefaultConfig())

	obs, err := env.Reset(nil)
	require.NoError(t, err)
	require.Len(t, obs, agent.ObservationSize)
	assert.InDelta(t, 24, obs[2], 1e-9)
	assert.Equal(t, 1, env.Controller().State().EpisodeID)

	trace, last := drive(t, env, agent.ActionCommand{Move: 1}, 3000)
	require.True(t, last.Done)
	assert.Equal(t, "parked", last.Outcome)

	steps := trace.Len()
	assert.InDelta(t, 2-0.001*float64(steps), trace.TotalReward(), 1e-9)
	assert.InDelta(t, env.Controller().State().CumulativeReward, trace.TotalReward(), 1e-9)
	assert.Equal(t, agent.FlagSuccess, env.Controller().Feedback().Flag().Kind)
	assert.Contains(t, last.Info, "Episode: 1 | Steps: ")
}

func TestEnvWallCollisionAndRespawn(t *testing.T) {
	world := sim.DefaultConfig()
	world.Target = agent.Pose{Position: r3.Vec{X: 15}, Rotation: agent.Identity()}
	env := newEnv(t, world)

	_, err := env.Reset(nil)
	require.NoError(t, err)
	trace, last := drive(t, env, agent.ActionCommand{Move: 1}, 3000)

	require.True(t, last.Done)
	assert.Equal(t, "collision", last.Outcome)
	assert.InDelta(t, -1-0.001*float64(trace.Len()), trace.TotalReward(), 1e-9)
	assert.Equal(t, agent.Red, env.World().Color(agent.SurfaceCar))
	assert.Equal(t, agent.Red, env.World().Color(agent.SurfaceFloor))

	obs, err := env.Reset(nil)
	require.NoError(t, err)
	state := env.Controller().State()
	assert.Equal(t, 2, state.EpisodeID)
	assert.Zero(t, state.StepCount)
	assert.Equal(t, world.CarColor, env.World().Color(agent.SurfaceCar))
	assert.Equal(t, world.Spawn.Position, env.World().Pose(agent.ObjectAgent).Position)
	assert.Equal(t, r3.Vec{}, env.World().Velocity(agent.ObjectAgent))
	assert.InDelta(t, 15, obs[0], 1e-9)

	// first tick of the new episode only pays the step penalty
	tr, err := env.Step(agent.ActionCommand{}.Vector(), nil)
	require.NoError(t, err)
	assert.InDelta(t, -0.001, tr.Reward, 1e-12)
	assert.Equal(t, "Episode: 2 | Steps: 1 | Reward: -0.00", tr.Info)
}

func TestEnvCloseRestoresFloor(t *testing.T) {
	world := sim.DefaultConfig()
	world.Target = agent.Pose{Position: r3.Vec{X: 15}, Rotation: agent.Identity()}
	env, err := NewParkingEnv(ParkingEnvConfig{Agent: agent.DefaultConfig(), World: world})
	require.NoError(t, err)

	_, err = env.Reset(nil)
	require.NoError(t, err)
	drive(t, env, agent.ActionCommand{Move: 1}, 3000)
	require.Equal(t, agent.Red, env.World().Color(agent.SurfaceFloor))

	require.NoError(t, env.Close())
	assert.Equal(t, world.FloorColor, env.World().Color(agent.SurfaceFloor))
}

func TestConstructorRejectsBadConfig(t *testing.T) {
	cfg := agent.DefaultConfig()
	cfg.PolicyInputSize = 3
	_, err := NewParkingEnvConstructor(ParkingEnvConfig{Agent: cfg, World: sim.DefaultConfig()}).NewEnvironment(0)
	assert.ErrorIs(t, err, agent.ErrObservationSize)
}

func TestPrepareComparisonRejectsUnknownPolicy(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Run.Policies = []string{"seek", "telepathy"}
	_, err := PrepareComparison(cfg, Options{})
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	cfg.Run.Policies = []string{"input"}
	_, err = PrepareComparison(cfg, Options{})
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestComparisonEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	cfg := config.NewDefaultConfig()
	cfg.Run.SavePath = dir
	cfg.Run.Episodes = 3
	cfg.Run.Horizon = 400
	cfg.Run.Policies = []string{"seek", "random", "seek"}
	cfg.Run.Debug = true
	cfg.Run.TraceFrom = 2

	s, err := store.NewStore(filepath.Join(dir, "parking.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()
	runID, err := s.BeginRun(cfg)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	cmp, err := PrepareComparison(cfg, Options{Store: s, RunID: runID, Logger: logger})
	require.NoError(t, err)
	require.Len(t, cmp.Experiments, 2)

	results := cmp.Run(context.Background(), cfg.Run.NumRuns, cfg.RunConfig(logger, io.Discard), cfg.Run.Parallelism)
	require.Len(t, results, 1)

	seek := results[0]["seek"]
	require.NotNil(t, seek)
	require.NoError(t, seek.Error)
	assert.Equal(t, 3, seek.CompletedEpisodes)
	assert.Equal(t, 3, seek.Outcomes["parked"])

	random := results[0]["random"]
	require.NotNil(t, random)
	assert.Equal(t, 3, random.CompletedEpisodes)

	for _, f := range []string{"0/reward_curve.json", "0/outcomes.json"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, f)
	}
	_, err = os.Stat(filepath.Join(dir, "traces", "0_seek_trace_2.txt"))
	assert.NoError(t, err)

	eps, err := s.Episodes(runID)
	require.NoError(t, err)
	assert.Len(t, eps, 6)
	sums, err := s.Summaries(runID)
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, "random", sums[0].Experiment)
	assert.Equal(t, map[string]int{"parked": 3}, sums[1].Outcomes)
}
