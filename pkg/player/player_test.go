package player

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

func newMotion(loop bool) *model.Motion {
	m := model.NewMotion("", "hello", 30, 2.0)
	m.Loop = loop
	// 登録順は時刻順でなくてよい
	m.AppendKeyframe(&model.Keyframe{Index: 30, Time: 1.0, Bones: model.JointRotationMap{
		model.RightArm:     {X: -0.4},
		model.RightForeArm: {X: 1.0},
		model.LeftForeArm:  {X: 0.5},
	}})
	m.AppendKeyframe(&model.Keyframe{Index: 0, Time: 0, Bones: model.JointRotationMap{
		model.RightArm:     {X: -0.4},
		model.RightForeArm: {X: 0},
	}})
	return m
}

var approx = cmpopts.EquateApprox(0, 1e-12)

func newPlayer(t *testing.T, m *model.Motion) *Player {
	t.Helper()

	p, err := NewPlayer(m)
	require.NoError(t, err)
	return p
}

func TestSample(t *testing.T) {
	p := newPlayer(t, newMotion(false))

	tests := []struct {
		name string
		t    float64
		want model.JointRotationMap
	}{
		{
			name: "first keyframe",
			t:    0,
			want: model.JointRotationMap{model.RightArm: {X: -0.4}, model.RightForeArm: {X: 0}},
		},
		{
			name: "midpoint interpolates shared joints and holds the rest",
			t:    0.5,
			want: model.JointRotationMap{
				model.RightArm:     {X: -0.4},
				model.RightForeArm: {X: 0.5},
				model.LeftForeArm:  {X: 0.5},
			},
		},
		{
			name: "after last keyframe holds it",
			t:    1.5,
			want: model.JointRotationMap{
				model.RightArm:     {X: -0.4},
				model.RightForeArm: {X: 1.0},
				model.LeftForeArm:  {X: 0.5},
			},
		},
		{
			name: "before first keyframe holds it",
			t:    -1,
			want: model.JointRotationMap{model.RightArm: {X: -0.4}, model.RightForeArm: {X: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, p.Sample(tt.t), approx); diff != "" {
				t.Errorf("Sample(%v) mismatch (-want +got):\n%s", tt.t, diff)
			}
		})
	}
	assert.Zero(t, p.Elapsed(), "Sample must not move the playhead")
}

func TestSampleLoopWraps(t *testing.T) {
	p := newPlayer(t, newMotion(true))

	if diff := cmp.Diff(p.Sample(0.5), p.Sample(2.5), approx); diff != "" {
		t.Errorf("looped sample mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(p.Sample(1.5), p.Sample(-0.5), approx); diff != "" {
		t.Errorf("negative time mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvanceNonLoop(t *testing.T) {
	p := newPlayer(t, newMotion(false))
	assert.Equal(t, 2.0, p.Duration())

	bones := p.Advance(0.5)
	assert.InDelta(t, 0.5, bones[model.RightForeArm].X, 1e-12)
	assert.False(t, p.Finished())

	p.Advance(1.0)
	assert.False(t, p.Finished())

	bones = p.Advance(1.0)
	assert.True(t, p.Finished())
	assert.Equal(t, 2.0, p.Elapsed())
	assert.InDelta(t, 1.0, bones[model.RightForeArm].X, 1e-12)

	p.Reset()
	assert.False(t, p.Finished())
	assert.Zero(t, p.Elapsed())
}

func TestAdvanceLoop(t *testing.T) {
	p := newPlayer(t, newMotion(true))

	p.Advance(1.5)
	bones := p.Advance(1.0)
	assert.False(t, p.Finished())
	assert.InDelta(t, 0.5, p.Elapsed(), 1e-12)
	assert.InDelta(t, 0.5, bones[model.RightForeArm].X, 1e-12)
}

func TestDurationFallsBackToLastKeyframe(t *testing.T) {
	m := newMotion(false)
	m.Duration = 0
	p := newPlayer(t, m)
	assert.Equal(t, 1.0, p.Duration())
}

func TestEmptyMotion(t *testing.T) {
	p := newPlayer(t, model.NewMotion("", "empty", 30, 0))
	assert.Nil(t, p.Sample(0))
	assert.Nil(t, p.Advance(0.1))
	assert.True(t, p.Finished())
}

func TestSampleReturnsCopy(t *testing.T) {
	m := newMotion(false)
	p := newPlayer(t, m)

	bones := p.Sample(0)
	require.NotNil(t, bones)
	bones[model.RightArm] = model.Rotation{X: 9}
	assert.Equal(t, -0.4, m.Keyframes[1].Bones[model.RightArm].X)

	// 再生中に元のモーションを書き換えても影響しない
	m.Keyframes[1].Bones[model.RightArm] = model.Rotation{X: 5}
	assert.Equal(t, -0.4, p.Sample(0)[model.RightArm].X)
}
