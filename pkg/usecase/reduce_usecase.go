package usecase

import (
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/mmath"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
	"github.com/miu200521358/sign-pose-trace/pkg/utils"
)

// Reduce drops keyframes that linear interpolation reproduces within tolerance radians.
func Reduce(allPrevMotions []*model.Motion, tolerance float64) []*model.Motion {
	mlog.I("Start: Reduce =============================")

	allMotions := make([]*model.Motion, len(allPrevMotions))

	// 全体のタスク数をカウント
	totalFrames := 0
	for _, motion := range allPrevMotions {
		totalFrames += motion.Len()
	}

	bar := utils.NewProgressBar(totalFrames)
	var wg sync.WaitGroup

	for i := range allPrevMotions {
		wg.Add(1)

		go func(i int, prevMotion *model.Motion) {
			defer wg.Done()
			allMotions[i] = reduceMotion(prevMotion, tolerance, bar)
			mlog.D("[%s] reduce %d -> %d", prevMotion.Name, prevMotion.Len(), allMotions[i].Len())
		}(i, allPrevMotions[i])
	}

	wg.Wait()
	bar.Finish()

	mlog.I("End: Reduce =============================")

	return allMotions
}

// ReduceMotion is the single-motion form of Reduce.
func ReduceMotion(prevMotion *model.Motion, tolerance float64) *model.Motion {
	return reduceMotion(prevMotion, tolerance, nil)
}

func reduceMotion(prevMotion *model.Motion, tolerance float64, bar *pb.ProgressBar) *model.Motion {
	motion := derive(prevMotion)

	keyframes := prevMotion.Keyframes
	if len(keyframes) == 0 {
		return motion
	}

	// 関節の組み合わせが変わる所で区切り、区間ごとに間引く
	start := 0
	for i := 1; i <= len(keyframes); i++ {
		if i < len(keyframes) && sameJoints(keyframes[i-1].Bones, keyframes[i].Bones) {
			continue
		}

		run := keyframes[start:i]
		for _, index := range reduceRun(run, tolerance) {
			motion.AppendKeyframe(cloneKeyframe(run[index]))
		}
		if bar != nil {
			bar.Add(len(run))
		}
		start = i
	}

	return motion
}

func reduceRun(run []*model.Keyframe, tolerance float64) []int {
	times := make([]float64, len(run))
	for i, kf := range run {
		times[i] = kf.Time
	}

	channels := make([][]float64, 0, len(run[0].Bones)*3)
	for _, joint := range model.AllJoints {
		if _, ok := run[0].Bones[joint]; !ok {
			continue
		}
		xs := make([]float64, len(run))
		ys := make([]float64, len(run))
		zs := make([]float64, len(run))
		for i, kf := range run {
			r := kf.Bones[joint]
			xs[i], ys[i], zs[i] = r.X, r.Y, r.Z
		}
		channels = append(channels, xs, ys, zs)
	}

	return mmath.ReduceIndexes(times, channels, tolerance)
}

func sameJoints(a, b model.JointRotationMap) bool {
	if len(a) != len(b) {
		return false
	}
	for j := range a {
		if _, ok := b[j]; !ok {
			return false
		}
	}
	return true
}
