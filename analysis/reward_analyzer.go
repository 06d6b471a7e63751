package analysis

import (
	"path"
	"strconv"

	"github.com/zeu5/self-parking/core"
	"github.com/zeu5/self-parking/util"
)

// RewardCurve is the learning curve of one experiment run: one entry per
// finished episode.
type RewardCurve struct {
	Episodes  []int
	Timesteps []int
	Steps     []int
	Rewards   []float64
}

func (c *RewardCurve) Copy() *RewardCurve {
	return &RewardCurve{
		Episodes:  append([]int(nil), c.Episodes...),
		Timesteps: append([]int(nil), c.Timesteps...),
		Steps:     append([]int(nil), c.Steps...),
		Rewards:   append([]float64(nil), c.Rewards...),
	}
}

// MeanReward over the last n episodes, all of them when n <= 0.
func (c *RewardCurve) MeanReward(n int) float64 {
	rewards := c.Rewards
	if n > 0 && n < len(rewards) {
		rewards = rewards[len(rewards)-n:]
	}
	if len(rewards) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range rewards {
		total += r
	}
	return total / float64(len(rewards))
}

type RewardAnalyzer struct {
	dataset *RewardCurve
}

var _ core.Analyzer = &RewardAnalyzer{}

func NewRewardAnalyzer() *RewardAnalyzer {
	return &RewardAnalyzer{dataset: &RewardCurve{}}
}

func (r *RewardAnalyzer) Reset() {
	r.dataset = &RewardCurve{}
}

func (r *RewardAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	if eCtx.IsError() {
		return
	}
	lastTimeStep := 0
	if len(r.dataset.Timesteps) > 0 {
		lastTimeStep = r.dataset.Timesteps[len(r.dataset.Timesteps)-1]
	}
	r.dataset.Episodes = append(r.dataset.Episodes, eCtx.Episode)
	r.dataset.Timesteps = append(r.dataset.Timesteps, lastTimeStep+trace.Len())
	r.dataset.Steps = append(r.dataset.Steps, trace.Len())
	r.dataset.Rewards = append(r.dataset.Rewards, trace.TotalReward())
}

func (r *RewardAnalyzer) DataSet() core.DataSet {
	return r.dataset.Copy()
}

type RewardAnalyzerConstructor struct{}

var _ core.AnalyzerConstructor = &RewardAnalyzerConstructor{}

func (RewardAnalyzerConstructor) NewAnalyzer(_ string, _ int) core.Analyzer {
	return NewRewardAnalyzer()
}

// RewardComparator saves every experiment's curve to reward_curve.json.
type RewardComparator struct {
	savePath string
}

var _ core.Comparator = &RewardComparator{}

func NewRewardComparator(savePath string) *RewardComparator {
	return &RewardComparator{
		savePath: path.Join(savePath, "reward_curve.json"),
	}
}

func (c *RewardComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	out := make(map[string]*RewardCurve)
	for i, name := range experimentNames {
		if curve, ok := datasets[i].(*RewardCurve); ok {
			out[name] = curve
		}
	}
	util.SaveJson(c.savePath, out)
}

type RewardComparatorConstructor struct {
	savePath string
}

var _ core.ComparatorConstructor = &RewardComparatorConstructor{}

func NewRewardComparatorConstructor(savePath string) *RewardComparatorConstructor {
	return &RewardComparatorConstructor{
		savePath: savePath,
	}
}

func (c *RewardComparatorConstructor) NewComparator(run int) core.Comparator {
	return NewRewardComparator(path.Join(c.savePath, strconv.Itoa(run)))
}
