package model

import (
	"sort"

	"github.com/jinzhu/copier"
)

type Keyframe struct {
	Index int              `json:"index"`
	Time  float64          `json:"time"`
	Bones JointRotationMap `json:"bones"`
}

// Motion is a converted sign clip, keyframes sorted by time.
type Motion struct {
	Path      string      `json:"-"`
	Name      string      `json:"name"`
	Fps       float64     `json:"fps"`
	Duration  float64     `json:"duration"`
	Loop      bool        `json:"loop"`
	Keyframes []*Keyframe `json:"keyframes"`
}

func NewMotion(path, name string, fps, duration float64) *Motion {
	return &Motion{
		Path:      path,
		Name:      name,
		Fps:       fps,
		Duration:  duration,
		Keyframes: make([]*Keyframe, 0),
	}
}

func (m *Motion) AppendKeyframe(kf *Keyframe) {
	m.Keyframes = append(m.Keyframes, kf)
}

func (m *Motion) Sort() {
	sort.SliceStable(m.Keyframes, func(i, j int) bool {
		return m.Keyframes[i].Time < m.Keyframes[j].Time
	})
}

func (m *Motion) Len() int {
	return len(m.Keyframes)
}

// Joints lists the joints present in any keyframe, in AllJoints order.
func (m *Motion) Joints() []JointName {
	seen := make(map[JointName]bool)
	for _, kf := range m.Keyframes {
		for j := range kf.Bones {
			seen[j] = true
		}
	}
	joints := make([]JointName, 0, len(seen))
	for _, j := range AllJoints {
		if seen[j] {
			joints = append(joints, j)
		}
	}
	return joints
}

func (m *Motion) Copy() (*Motion, error) {
	c := &Motion{}
	if err := copier.CopyWithOption(c, m, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	return c, nil
}
