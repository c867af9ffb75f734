package usecase

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/miu200521358/sign-pose-trace/pkg/config"
	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/mmath"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
	"github.com/miu200521358/sign-pose-trace/pkg/utils"
)

// Synthesizer turns a named pose into rig joint rotations.
type Synthesizer struct {
	// baseline raised-arm posture, not derived from the pose
	ShoulderOffset model.Rotation
}

func NewSynthesizer(shoulderOffset model.Rotation) *Synthesizer {
	return &Synthesizer{ShoulderOffset: shoulderOffset}
}

func NewSynthesizerFromConfig(cfg *config.Config) *Synthesizer {
	return NewSynthesizer(cfg.Rig.ShoulderOffset)
}

// Synthesize returns nil for a nil pose. An arm missing its shoulder, elbow or
// wrist gets no forearm entry.
func (s *Synthesizer) Synthesize(pose *model.NamedPose) model.JointRotationMap {
	if pose == nil {
		return nil
	}

	rotations := make(model.JointRotationMap, len(model.AllJoints))
	for _, side := range []model.Side{model.Right, model.Left} {
		rotations[model.ShoulderJoint(side)] = s.ShoulderOffset

		shoulder, elbow, wrist := pose.Arm(side)
		if shoulder == nil || elbow == nil || wrist == nil {
			continue
		}

		// interior angle: 0 fully bent, π fully extended
		theta := mmath.AngleBetween(shoulder.Vec3(), elbow.Vec3(), wrist.Vec3())
		rotations[model.ForeArmJoint(side)] = model.Rotation{X: -theta + math.Pi/2}
	}

	return rotations
}

// Retargeter runs extraction and synthesis for one frame.
type Retargeter struct {
	Extractor   *Extractor
	Synthesizer *Synthesizer
}

func NewRetargeter(extractor *Extractor, synthesizer *Synthesizer) *Retargeter {
	return &Retargeter{Extractor: extractor, Synthesizer: synthesizer}
}

func NewRetargeterFromConfig(cfg *config.Config) (*Retargeter, error) {
	extractor, err := NewExtractorFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewRetargeter(extractor, NewSynthesizerFromConfig(cfg)), nil
}

func (r *Retargeter) Retarget(landmarks []model.Landmark) model.JointRotationMap {
	return r.Synthesizer.Synthesize(r.Extractor.Extract(landmarks))
}

// Rotate converts every landmark file into a motion, one goroutine per file.
func Rotate(allFiles []*model.LandmarkFile, retargeter *Retargeter, loop bool) []*model.Motion {
	mlog.I("Start: Rotate =============================")

	allMotions := make([]*model.Motion, len(allFiles))

	// 全体のタスク数をカウント
	totalFrames := 0
	for _, file := range allFiles {
		totalFrames += len(file.Frames)
	}

	bar := utils.NewProgressBar(totalFrames)

	var wg sync.WaitGroup

	for i, file := range allFiles {
		wg.Add(1)

		go func(i int, file *model.LandmarkFile) {
			defer wg.Done()
			allMotions[i] = convertLandmarks2Motion(file, retargeter, loop, bar)
		}(i, file)
	}

	wg.Wait()
	bar.Finish()

	mlog.I("End: Rotate =============================")

	return allMotions
}

// RotateFile converts a single landmark file without progress output.
func RotateFile(file *model.LandmarkFile, retargeter *Retargeter, loop bool) *model.Motion {
	return convertLandmarks2Motion(file, retargeter, loop, nil)
}

func convertLandmarks2Motion(file *model.LandmarkFile, retargeter *Retargeter, loop bool, bar *pb.ProgressBar) *model.Motion {
	motion := model.NewMotion(MotionPath(file.Path), file.Name, file.Fps, file.Duration())
	motion.Loop = loop

	skipped := 0
	for _, frame := range file.Frames {
		if bar != nil {
			bar.Increment()
		}

		bones := retargeter.Retarget(frame.Landmarks)
		if bones == nil {
			skipped++
			continue
		}

		motion.AppendKeyframe(&model.Keyframe{Index: frame.Index, Time: frame.Time, Bones: bones})
	}
	motion.Sort()

	if skipped > 0 {
		mlog.D("[%s] %d/%d frames without pose", file.Name, skipped, len(file.Frames))
	}

	return motion
}

// MotionPath maps a landmark file path to its motion output path.
func MotionPath(landmarkPath string) string {
	if landmarkPath == "" {
		return ""
	}
	base := strings.TrimSuffix(landmarkPath, ".json")
	base = strings.TrimSuffix(base, LandmarkSuffix)
	return fmt.Sprintf("%s%s", base, MotionSuffix)
}
