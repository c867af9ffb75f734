package usecase

import (
	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

// Keyframes thins every motion: evenly spaced sampling down to maxKeyframes,
// then every stride-th key pose.
func Keyframes(allMotions []*model.Motion, maxKeyframes, stride int) []*model.Motion {
	mlog.I("Start: Keyframes =============================")

	allKeyMotions := make([]*model.Motion, len(allMotions))
	for i, motion := range allMotions {
		allKeyMotions[i] = KeyPoses(SampleKeyframes(motion, maxKeyframes), stride)
		mlog.D("[%s] keyframes %d -> %d", motion.Name, motion.Len(), allKeyMotions[i].Len())
	}

	mlog.I("End: Keyframes =============================")

	return allKeyMotions
}

// SampleKeyframes keeps at most maxKeyframes evenly spaced keyframes
// (index floor(i/n*len)). Sampled keyframes keep their own time. maxKeyframes 0
// keeps everything.
func SampleKeyframes(motion *model.Motion, maxKeyframes int) *model.Motion {
	sampled := derive(motion)

	n := motion.Len()
	if maxKeyframes > 0 && maxKeyframes < n {
		n = maxKeyframes
	}
	for i := 0; i < n; i++ {
		index := i * motion.Len() / n
		sampled.AppendKeyframe(cloneKeyframe(motion.Keyframes[index]))
	}

	return sampled
}

// KeyPoses keeps every stride-th keyframe. stride <= 1 keeps everything.
func KeyPoses(motion *model.Motion, stride int) *model.Motion {
	poses := derive(motion)
	if stride < 1 {
		stride = 1
	}
	for i, kf := range motion.Keyframes {
		if i%stride == 0 {
			poses.AppendKeyframe(cloneKeyframe(kf))
		}
	}
	return poses
}

func derive(motion *model.Motion) *model.Motion {
	m := model.NewMotion(motion.Path, motion.Name, motion.Fps, motion.Duration)
	m.Loop = motion.Loop
	return m
}

func cloneKeyframe(kf *model.Keyframe) *model.Keyframe {
	return &model.Keyframe{Index: kf.Index, Time: kf.Time, Bones: kf.Bones.Clone()}
}
