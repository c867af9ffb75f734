package anim

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

// WriteGltf exports the motion as a binary glTF clip: one node per joint, named
// after the rig bone, and one animation with a linear rotation channel per joint.
func WriteGltf(motion *model.Motion, path string) error {
	doc, err := BuildGltf(motion)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func BuildGltf(motion *model.Motion) (*gltf.Document, error) {
	joints := motion.Joints()
	if len(joints) == 0 {
		return nil, fmt.Errorf("motion %q has no keyframes to export", motion.Name)
	}

	doc := gltf.NewDocument()
	animation := &gltf.Animation{Name: motion.Name}

	for _, joint := range joints {
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: joint.String()})
		node := len(doc.Nodes) - 1
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, node)

		times := make([]float32, 0, motion.Len())
		rotations := make([][4]float32, 0, motion.Len())
		for _, kf := range motion.Keyframes {
			r, ok := kf.Bones[joint]
			if !ok {
				continue
			}
			q := r.Quat()
			times = append(times, float32(kf.Time))
			rotations = append(rotations, [4]float32{float32(q.V[0]), float32(q.V[1]), float32(q.V[2]), float32(q.W)})
		}

		input := modeler.WriteAccessor(doc, gltf.TargetNone, times)
		output := modeler.WriteAccessor(doc, gltf.TargetNone, rotations)

		animation.Samplers = append(animation.Samplers, &gltf.AnimationSampler{
			Input:         input,
			Output:        output,
			Interpolation: gltf.InterpolationLinear,
		})
		animation.Channels = append(animation.Channels, &gltf.AnimationChannel{
			Sampler: len(animation.Samplers) - 1,
			Target: gltf.AnimationChannelTarget{
				Node: gltf.Index(node),
				Path: gltf.TRSRotation,
			},
		})
	}

	doc.Animations = append(doc.Animations, animation)
	return doc, nil
}
