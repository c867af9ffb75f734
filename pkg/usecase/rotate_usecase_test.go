package usecase

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miu200521358/sign-pose-trace/pkg/config"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func lm(x, y, z float64) *model.Landmark {
	l := model.NewLandmark(x, y, z)
	return &l
}

// mediapipeFrame builds 33 landmarks with the given arm points; everything else
// sits at the origin.
func mediapipeFrame(rs, re, rw, ls, le, lw [3]float64) []model.Landmark {
	landmarks := make([]model.Landmark, 33)
	set := func(i int, p [3]float64) { landmarks[i] = model.NewLandmark(p[0], p[1], p[2]) }
	set(12, rs)
	set(14, re)
	set(16, rw)
	set(11, ls)
	set(13, le)
	set(15, lw)
	return landmarks
}

func TestSynthesize(t *testing.T) {
	s := NewSynthesizer(model.Rotation{X: -0.4})

	tests := []struct {
		name string
		pose *model.NamedPose
		want model.JointRotationMap
	}{
		{
			name: "right angle elbow",
			pose: &model.NamedPose{
				RightShoulder: lm(0, 1, 0), RightElbow: lm(0, 0, 0), RightWrist: lm(1, 0, 0),
				LeftShoulder: lm(0, 1, 0), LeftElbow: lm(0, 0, 0), LeftWrist: lm(1, 0, 0),
			},
			want: model.JointRotationMap{
				model.RightArm:     {X: -0.4},
				model.RightForeArm: {X: 0},
				model.LeftArm:      {X: -0.4},
				model.LeftForeArm:  {X: 0},
			},
		},
		{
			name: "fully extended arm",
			pose: &model.NamedPose{
				RightShoulder: lm(0, 1, 0), RightElbow: lm(0, 0, 0), RightWrist: lm(0, -1, 0),
				LeftShoulder: lm(0, 1, 0), LeftElbow: lm(0, 0, 0), LeftWrist: lm(0, 1, 0),
			},
			want: model.JointRotationMap{
				model.RightArm:     {X: -0.4},
				model.RightForeArm: {X: -math.Pi / 2},
				model.LeftArm:      {X: -0.4},
				model.LeftForeArm:  {X: math.Pi / 2},
			},
		},
		{
			name: "missing left wrist omits the left forearm only",
			pose: &model.NamedPose{
				RightShoulder: lm(0, 1, 0), RightElbow: lm(0, 0, 0), RightWrist: lm(1, 0, 0),
				LeftShoulder: lm(0, 1, 0), LeftElbow: lm(0, 0, 0),
			},
			want: model.JointRotationMap{
				model.RightArm:     {X: -0.4},
				model.RightForeArm: {X: 0},
				model.LeftArm:      {X: -0.4},
			},
		},
		{
			name: "empty pose keeps the shoulder baseline",
			pose: &model.NamedPose{},
			want: model.JointRotationMap{
				model.RightArm: {X: -0.4},
				model.LeftArm:  {X: -0.4},
			},
		},
		{
			name: "degenerate arm gives zero angle",
			pose: &model.NamedPose{
				RightShoulder: lm(0, 0, 0), RightElbow: lm(0, 0, 0), RightWrist: lm(1, 0, 0),
			},
			want: model.JointRotationMap{
				model.RightArm:     {X: -0.4},
				model.RightForeArm: {X: math.Pi / 2},
				model.LeftArm:      {X: -0.4},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Synthesize(tt.pose)
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("Synthesize mismatch (-want +got):\n%s", diff)
			}
			for joint := range got {
				assert.True(t, joint.Valid(), "unexpected joint %s", joint)
			}
		})
	}
}

func TestSynthesizeNilPose(t *testing.T) {
	s := NewSynthesizer(model.Rotation{X: -0.4})
	assert.Nil(t, s.Synthesize(nil))
}

func TestRetargetNilLandmarks(t *testing.T) {
	r, err := NewRetargeterFromConfig(config.DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, r.Retarget(nil))
}

func TestRetargetHandsOnlyFrame(t *testing.T) {
	r, err := NewRetargeterFromConfig(config.DefaultConfig())
	require.NoError(t, err)

	// 手だけ検出されたフレーム (21点) と姿勢ありのフレーム (33点 + 片手)
	hand := make([][3]float64, 21)
	for i := range hand {
		hand[i] = [3]float64{0.6, 0.4 + float64(i)/100, 0}
	}
	withPose := make([][3]float64, 33+21)
	withPose[12] = [3]float64{0, 1, 0}
	withPose[16] = [3]float64{0, -1, 0}
	withPose[11] = [3]float64{0, 1, 0}
	withPose[15] = [3]float64{1, 0, 0}
	data, err := json.Marshal(map[string]interface{}{
		"name":      "hello",
		"fps":       30,
		"frames":    2,
		"landmarks": [][][3]float64{hand, withPose},
	})
	require.NoError(t, err)

	var file model.LandmarkFile
	require.NoError(t, json.Unmarshal(data, &file))
	require.Len(t, file.Frames, 2)

	assert.Nil(t, file.Frames[0].Landmarks)
	assert.Nil(t, r.Retarget(file.Frames[0].Landmarks))
	assert.Len(t, r.Retarget(file.Frames[1].Landmarks), 4)

	motion := RotateFile(&file, r, false)
	require.Equal(t, 1, motion.Len())
	assert.Equal(t, 1, motion.Keyframes[0].Index)
}

func TestRetargetDeterministic(t *testing.T) {
	r, err := NewRetargeterFromConfig(config.DefaultConfig())
	require.NoError(t, err)

	frame := mediapipeFrame(
		[3]float64{0.2, 0.5, 0.1}, [3]float64{0.4, 0.2, 0.0}, [3]float64{0.3, -0.1, 0.2},
		[3]float64{-0.2, 0.5, 0.1}, [3]float64{-0.3, 0.3, 0.2}, [3]float64{-0.1, 0.4, 0.3},
	)
	before := append([]model.Landmark(nil), frame...)

	first := r.Retarget(frame)
	second := r.Retarget(frame)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second pass differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, frame); diff != "" {
		t.Errorf("landmarks were mutated (-before +after):\n%s", diff)
	}
	assert.Len(t, first, 4)
}

func TestRotateFile(t *testing.T) {
	r, err := NewRetargeterFromConfig(config.DefaultConfig())
	require.NoError(t, err)

	straight := mediapipeFrame(
		[3]float64{0, 1, 0}, [3]float64{0, 0, 0}, [3]float64{0, -1, 0},
		[3]float64{0, 1, 0}, [3]float64{0, 0, 0}, [3]float64{1, 0, 0},
	)
	file := &model.LandmarkFile{
		Path: "/tmp/hello_landmarks.json",
		Name: "hello",
		Fps:  10,
		Frames: []model.LandmarkFrame{
			{Index: 1, Time: 0.1, Landmarks: straight},
			{Index: 0, Time: 0, Landmarks: straight},
			{Index: 2, Time: 0.2, Landmarks: nil},
		},
	}

	motion := RotateFile(file, r, true)
	assert.Equal(t, "/tmp/hello_motion.json", motion.Path)
	assert.Equal(t, "hello", motion.Name)
	assert.True(t, motion.Loop)
	assert.InDelta(t, 0.3, motion.Duration, 1e-12)
	require.Equal(t, 2, motion.Len())
	assert.Equal(t, 0, motion.Keyframes[0].Index)
	assert.InDelta(t, -math.Pi/2, motion.Keyframes[0].Bones[model.RightForeArm].X, 1e-9)
	assert.InDelta(t, 0, motion.Keyframes[0].Bones[model.LeftForeArm].X, 1e-9)
}

func TestRotateKeepsFileOrder(t *testing.T) {
	r, err := NewRetargeterFromConfig(config.DefaultConfig())
	require.NoError(t, err)

	files := []*model.LandmarkFile{
		{Path: "a_landmarks.json", Name: "a", Fps: 30},
		{Path: "b_landmarks.json", Name: "b", Fps: 30},
	}
	motions := Rotate(files, r, false)
	require.Len(t, motions, 2)
	assert.Equal(t, "a", motions[0].Name)
	assert.Equal(t, "b", motions[1].Name)
	assert.Zero(t, motions[1].Len())
}

func TestMotionPath(t *testing.T) {
	assert.Equal(t, "dir/hello_motion.json", MotionPath("dir/hello_landmarks.json"))
	assert.Equal(t, "dir/hello_motion.json", MotionPath("dir/hello.json"))
	assert.Equal(t, "", MotionPath(""))
}
