package replay

import (
	"github.com/gridsense-data/phase.report/internal/power/p1samples"
	"github.com/gridsense-data/phase.report/internal/power/pipeline"
)

// Run feeds every sample through the pipeline in order and hands each
// accepted result to the callback (nil to discard). Rejected samples are
// counted by the pipeline and skipped; a bad row costs one sample, not
// the run. Returns the final counter snapshot.
func Run(pl *pipeline.Pipeline, samples []p1samples.Sample, each func(pipeline.Result)) pipeline.Stats {
	for _, s := range samples {
		res, err := pl.Process(s)
		if err != nil {
			continue
		}
		if each != nil {
			each(res)
		}
	}
	return pl.Stats()
}
