package usecase

import (
	"math"

	"github.com/miu200521358/sign-pose-trace/pkg/config"
	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

// Extractor picks the arm landmarks out of a pose-model frame.
type Extractor struct {
	Layout        model.LandmarkLayout
	ImageSpace    bool
	AspectRatio   float64
	MinVisibility float64
}

func NewExtractor(layout model.LandmarkLayout) *Extractor {
	return &Extractor{Layout: layout, AspectRatio: 1}
}

func NewExtractorFromConfig(cfg *config.Config) (*Extractor, error) {
	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	return &Extractor{
		Layout:        layout,
		ImageSpace:    cfg.Pose.CoordinateSpace == config.CoordinateImage,
		AspectRatio:   cfg.Pose.AspectRatio,
		MinVisibility: cfg.Pose.MinVisibility,
	}, nil
}

// Extract returns nil when landmarks is nil (no body in frame). Indexes outside
// the slice, non-finite points and points under the visibility threshold leave
// their field nil.
func (e *Extractor) Extract(landmarks []model.Landmark) *model.NamedPose {
	if landmarks == nil {
		return nil
	}
	if len(landmarks) < e.Layout.Count {
		mlog.V("%s expects %d landmarks, got %d", e.Layout, e.Layout.Count, len(landmarks))
	}

	return &model.NamedPose{
		RightShoulder: e.pick(landmarks, e.Layout.RightShoulder),
		RightElbow:    e.pick(landmarks, e.Layout.RightElbow),
		RightWrist:    e.pick(landmarks, e.Layout.RightWrist),
		LeftShoulder:  e.pick(landmarks, e.Layout.LeftShoulder),
		LeftElbow:     e.pick(landmarks, e.Layout.LeftElbow),
		LeftWrist:     e.pick(landmarks, e.Layout.LeftWrist),
	}
}

func (e *Extractor) pick(landmarks []model.Landmark, index int) *model.Landmark {
	if index < 0 || index >= len(landmarks) {
		return nil
	}

	// copy, the caller's frame stays untouched
	lm := landmarks[index]
	if !finite(lm.X) || !finite(lm.Y) || !finite(lm.Z) {
		return nil
	}
	if !lm.Visible(e.MinVisibility) {
		return nil
	}
	if lm.Visibility != nil {
		v := *lm.Visibility
		lm.Visibility = &v
	}
	if e.ImageSpace && e.AspectRatio > 0 {
		lm.X *= e.AspectRatio
	}
	return &lm
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
