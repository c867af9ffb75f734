package usecase

import (
	"strings"

	"github.com/miu200521358/sign-pose-trace/pkg/anim"
	"github.com/miu200521358/sign-pose-trace/pkg/config"
	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

// ConvertFile runs the whole pipeline for one landmark file and writes the
// motion next to it: Unpack, Rotate, Keyframes, Reduce, Write.
func ConvertFile(path string, cfg *config.Config, retargeter *Retargeter) (*model.Motion, error) {
	file, err := UnpackFile(path, cfg.Motion.Fps)
	if err != nil {
		return nil, err
	}

	motion := RotateFile(file, retargeter, cfg.Motion.Loop)
	motion = KeyPoses(SampleKeyframes(motion, cfg.Motion.MaxKeyframes), cfg.Motion.KeyPoseStride)
	if cfg.Motion.ReduceTolerance > 0 {
		motion = ReduceMotion(motion, cfg.Motion.ReduceTolerance)
	}

	if err := anim.Write(motion); err != nil {
		return nil, err
	}
	if cfg.Motion.Gltf && motion.Len() > 0 {
		if err := anim.WriteGltf(motion, GltfPath(motion.Path)); err != nil {
			return nil, err
		}
	}

	mlog.D("[%s] %d frames -> %d keyframes", file.Name, len(file.Frames), motion.Len())
	return motion, nil
}

// GltfPath maps a motion json path to its binary glTF path.
func GltfPath(motionPath string) string {
	return strings.TrimSuffix(motionPath, ".json") + ".glb"
}
