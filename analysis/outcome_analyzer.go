package analysis

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/zeu5/self-parking/core"
	"github.com/zeu5/self-parking/util"
)

// OutcomeHorizon labels episodes cut by the horizon before they ended.
const OutcomeHorizon = "horizon"

// Outcomes tallies how the episodes of one experiment run ended.
type Outcomes struct {
	Counts map[string]int
	// First is the first episode that ended with each outcome.
	First map[string]int
	// Success is the running fraction of episodes that ended in the target.
	Success []float64
}

func (o *Outcomes) Copy() *Outcomes {
	return &Outcomes{
		Counts:  util.CopyStringIntMap(o.Counts),
		First:   util.CopyStringIntMap(o.First),
		Success: append([]float64(nil), o.Success...),
	}
}

func newOutcomes() *Outcomes {
	return &Outcomes{
		Counts: make(map[string]int),
		First:  make(map[string]int),
	}
}

// OutcomeAnalyzer counts episode outcomes. When savePath is set, the trace
// of the first episode reaching each outcome is written under outcomes/.
type OutcomeAnalyzer struct {
	success  string
	savePath string
	exp      string
	total    int
	dataset  *Outcomes
}

var _ core.Analyzer = &OutcomeAnalyzer{}

func NewOutcomeAnalyzer(success string) *OutcomeAnalyzer {
	return &OutcomeAnalyzer{
		success: success,
		dataset: newOutcomes(),
	}
}

func (a *OutcomeAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	if eCtx.IsError() {
		return
	}
	outcome := trace.Outcome()
	if outcome == "" {
		outcome = OutcomeHorizon
	}
	a.total++
	a.dataset.Counts[outcome]++
	if _, seen := a.dataset.First[outcome]; !seen {
		a.dataset.First[outcome] = eCtx.Episode
		a.saveFirst(eCtx, outcome, trace)
	}
	a.dataset.Success = append(a.dataset.Success, float64(a.dataset.Counts[a.success])/float64(a.total))
}

func (a *OutcomeAnalyzer) saveFirst(eCtx *core.EpisodeContext, outcome string, trace *core.Trace) {
	if a.savePath == "" {
		return
	}
	fileName := fmt.Sprintf("%d_%s_%d.txt", eCtx.Run, outcome, eCtx.Episode)
	if a.exp != "" {
		fileName = fmt.Sprintf("%d_%s_%s_%d.txt", eCtx.Run, a.exp, outcome, eCtx.Episode)
	}
	os.WriteFile(path.Join(a.savePath, fileName), []byte(traceToString(trace)), 0644)
}

func (a *OutcomeAnalyzer) DataSet() core.DataSet {
	return a.dataset.Copy()
}

func (a *OutcomeAnalyzer) Reset() {
	a.total = 0
	a.dataset = newOutcomes()
}

type OutcomeAnalyzerConstructor struct {
	Success  string
	SavePath string
}

var _ core.AnalyzerConstructor = &OutcomeAnalyzerConstructor{}

func NewOutcomeAnalyzerConstructor(success, savePath string) *OutcomeAnalyzerConstructor {
	return &OutcomeAnalyzerConstructor{
		Success:  success,
		SavePath: savePath,
	}
}

func (c *OutcomeAnalyzerConstructor) NewAnalyzer(exp string, _ int) core.Analyzer {
	a := NewOutcomeAnalyzer(c.Success)
	a.exp = exp
	if c.SavePath != "" {
		a.savePath = path.Join(c.SavePath, "outcomes")
		if _, err := os.Stat(a.savePath); os.IsNotExist(err) {
			os.MkdirAll(a.savePath, 0755)
		}
	}
	return a
}

type OutcomeComparator struct {
	savePath string
}

var _ core.Comparator = &OutcomeComparator{}

func (c *OutcomeComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	out := make(map[string]*Outcomes)
	for i, name := range experimentNames {
		if o, ok := datasets[i].(*Outcomes); ok {
			out[name] = o
		}
	}
	util.SaveJson(c.savePath, out)
}

type OutcomeComparatorConstructor struct {
	savePath string
}

var _ core.ComparatorConstructor = &OutcomeComparatorConstructor{}

func NewOutcomeComparatorConstructor(savePath string) *OutcomeComparatorConstructor {
	return &OutcomeComparatorConstructor{savePath: savePath}
}

func (c *OutcomeComparatorConstructor) NewComparator(run int) core.Comparator {
	return &OutcomeComparator{savePath: path.Join(c.savePath, strconv.Itoa(run), "outcomes.json")}
}
