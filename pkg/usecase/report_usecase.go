package usecase

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

// JointStats summarizes the X axis of one joint over a motion.
type JointStats struct {
	Joint  model.JointName
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Report returns per-joint statistics in model.AllJoints order. Joints that never
// appear are left out.
func Report(motion *model.Motion) []JointStats {
	report := make([]JointStats, 0, len(model.AllJoints))

	for _, joint := range model.AllJoints {
		xs := make([]float64, 0, motion.Len())
		for _, kf := range motion.Keyframes {
			if r, ok := kf.Bones[joint]; ok {
				xs = append(xs, r.X)
			}
		}
		if len(xs) == 0 {
			continue
		}

		s := JointStats{
			Joint: joint,
			Count: len(xs),
			Min:   floats.Min(xs),
			Max:   floats.Max(xs),
			Mean:  stat.Mean(xs, nil),
		}
		if len(xs) > 1 {
			s.StdDev = stat.StdDev(xs, nil)
		}
		report = append(report, s)
	}

	return report
}

func LogReport(motion *model.Motion) {
	for _, s := range Report(motion) {
		mlog.I("[%s] %-22s n=%3d min=%+.3f max=%+.3f mean=%+.3f sd=%.3f",
			motion.Name, s.Joint, s.Count, s.Min, s.Max, s.Mean, s.StdDev)
	}
}
