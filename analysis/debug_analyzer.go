package analysis

import (
	"bytes"
	"fmt"
	"os"
	"path"

	"github.com/zeu5/self-parking/core"
)

type PrintDebugAnalyzer struct {
	// savePath is the path to save the trace
	savePath string
	exp      string
	// will save the trace to the file only after the episode number exceeds this threshold
	thresholdEpisode int
}

var _ core.Analyzer = &PrintDebugAnalyzer{}

func NewPrintDebugAnalyzer(savePath string, threshold int) *PrintDebugAnalyzer {
	return (&PrintDebugAnalyzerConstructor{SavePath: savePath, ThresholdEpisode: threshold}).build("")
}

func (a *PrintDebugAnalyzer) Analyze(ctx *core.EpisodeContext, trace *core.Trace) {
	if ctx.Episode < a.thresholdEpisode {
		return
	}
	fileName := fmt.Sprintf("%d_trace_%d.txt", ctx.Run, ctx.Episode)
	if a.exp != "" {
		fileName = fmt.Sprintf("%d_%s_trace_%d.txt", ctx.Run, a.exp, ctx.Episode)
	}
	os.WriteFile(path.Join(a.savePath, fileName), []byte(traceToString(trace)), 0644)
}

func traceToString(trace *core.Trace) string {
	buf := new(bytes.Buffer)
	for i := 0; i < trace.Len(); i++ {
		buf.WriteString(fmt.Sprintf("Step %d\n%s\n", i, stepToString(trace.Step(i))))
	}
	return buf.String()
}

func stepToString(step *core.Step) string {
	out := fmt.Sprintf("Observation: %s\nAction: %s\n", vectorToString(step.Observation), vectorToString(step.Action))
	if t := step.Transition; t != nil {
		out += fmt.Sprintf("Next Observation: %s\nReward: %.4f\n", vectorToString(t.Observation), t.Reward)
		if t.Done {
			out += fmt.Sprintf("Outcome: %s\n", t.Outcome)
		}
		if t.Info != "" {
			out += fmt.Sprintf("Info: %s\n", t.Info)
		}
	}
	return out
}

func vectorToString(v []float64) string {
	out := "["
	for i, x := range v {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%.3f", x)
	}
	return out + "]"
}

func (a *PrintDebugAnalyzer) DataSet() core.DataSet {
	return nil
}

func (a *PrintDebugAnalyzer) Reset() {
	// do nothing
}

type PrintDebugAnalyzerConstructor struct {
	SavePath         string
	ThresholdEpisode int
}

var _ core.AnalyzerConstructor = &PrintDebugAnalyzerConstructor{}

func NewPrintDebugAnalyzerConstructor(savePath string, thresholdEpisode int) *PrintDebugAnalyzerConstructor {
	return &PrintDebugAnalyzerConstructor{
		SavePath:         savePath,
		ThresholdEpisode: thresholdEpisode,
	}
}

func (c *PrintDebugAnalyzerConstructor) NewAnalyzer(exp string, _ int) core.Analyzer {
	return c.build(exp)
}

func (c *PrintDebugAnalyzerConstructor) build(exp string) *PrintDebugAnalyzer {
	if _, err := os.Stat(path.Join(c.SavePath, "traces")); os.IsNotExist(err) {
		os.MkdirAll(path.Join(c.SavePath, "traces"), 0755)
	}
	return &PrintDebugAnalyzer{
		savePath:         path.Join(c.SavePath, "traces"),
		exp:              exp,
		thresholdEpisode: c.ThresholdEpisode,
	}
}
