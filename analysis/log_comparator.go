package analysis

import (
	"go.uber.org/zap"

	"github.com/zeu5/self-parking/core"
)

// LogComparator closes analyses whose analyzers write their own results.
// It only logs which experiments came back without a dataset.
type LogComparator struct {
	analysis string
	run      int
	logger   *zap.Logger
}

var _ core.Comparator = &LogComparator{}

func (c *LogComparator) Compare(names []string, datasets []core.DataSet) {
	missing := make([]string, 0)
	for i, name := range names {
		if i >= len(datasets) || datasets[i] == nil {
			missing = append(missing, name)
		}
	}
	c.logger.Debug("analysis finished",
		zap.String("analysis", c.analysis),
		zap.Int("run", c.run),
		zap.Int("experiments", len(names)),
		zap.Strings("missing", missing),
	)
}

type LogComparatorConstructor struct {
	analysis string
	logger   *zap.Logger
}

var _ core.ComparatorConstructor = &LogComparatorConstructor{}

func NewLogComparatorConstructor(analysis string, logger *zap.Logger) *LogComparatorConstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogComparatorConstructor{analysis: analysis, logger: logger}
}

func (c *LogComparatorConstructor) NewComparator(run int) core.Comparator {
	return &LogComparator{analysis: c.analysis, run: run, logger: c.logger}
}
