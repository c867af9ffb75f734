package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrMalformedLandmarks = errors.New("malformed landmarks")

const (
	// extraction scripts write MediaPipe Pose points first, then 21 points per detected hand
	handPoints = 21
	maxHands   = 2
)

// flat files store the pose points as x,y,z,visibility before the hand values
var flatPoseValues = MediaPipePoseV1.Count * 4

type Landmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

func NewLandmark(x, y, z float64) Landmark {
	return Landmark{X: x, Y: y, Z: z}
}

func NewLandmarkVisibility(x, y, z, visibility float64) Landmark {
	return Landmark{X: x, Y: y, Z: z, Visibility: &visibility}
}

func (l Landmark) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{l.X, l.Y, l.Z}
}

// Visible reports whether the landmark passes minVisibility. Landmarks without a
// visibility value always pass.
func (l Landmark) Visible(minVisibility float64) bool {
	if l.Visibility == nil || minVisibility <= 0 {
		return true
	}
	return *l.Visibility >= minVisibility
}

type LandmarkFrame struct {
	Index     int        `json:"index"`
	Time      float64    `json:"time"`
	Landmarks []Landmark `json:"landmarks"`

	timed bool
}

// LandmarkFile is one recorded clip of per-frame landmarks.
type LandmarkFile struct {
	Path   string          `json:"-"`
	Name   string          `json:"name"`
	Fps    float64         `json:"fps"`
	Frames []LandmarkFrame `json:"frames"`
}

// ApplyDefaults fills fps when the file did not carry one and derives the
// timestamps of frames that had none.
func (f *LandmarkFile) ApplyDefaults(defaultFps float64) {
	if f.Fps <= 0 {
		f.Fps = defaultFps
	}
	if f.Fps <= 0 {
		return
	}
	for i := range f.Frames {
		if !f.Frames[i].timed {
			f.Frames[i].Time = float64(f.Frames[i].Index) / f.Fps
			f.Frames[i].timed = true
		}
	}
}

func (f *LandmarkFile) Duration() float64 {
	if f.Fps <= 0 {
		return 0
	}
	return float64(len(f.Frames)) / f.Fps
}

type rawLandmarkFile struct {
	SignName  string            `json:"sign_name"`
	Name      string            `json:"name"`
	Fps       float64           `json:"fps"`
	Landmarks []json.RawMessage `json:"landmarks"`
	Frames    json.RawMessage   `json:"frames"`
}

type rawLandmarkFrame struct {
	Index     *int            `json:"index"`
	Time      *float64        `json:"time"`
	Landmarks json.RawMessage `json:"landmarks"`
}

func (f *LandmarkFile) UnmarshalJSON(data []byte) error {
	var raw rawLandmarkFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f.Name = raw.Name
	if f.Name == "" {
		f.Name = raw.SignName
	}
	f.Fps = raw.Fps
	f.Frames = nil

	// "frames" is either a frame count (next to "landmarks") or the frame list itself
	frames := bytes.TrimSpace(raw.Frames)
	if len(frames) > 0 && frames[0] == '[' {
		var rawFrames []rawLandmarkFrame
		if err := json.Unmarshal(frames, &rawFrames); err != nil {
			return err
		}
		for i, rf := range rawFrames {
			landmarks, err := DecodeLandmarks(rf.Landmarks)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			frame := LandmarkFrame{Index: i, Landmarks: landmarks}
			if rf.Index != nil {
				frame.Index = *rf.Index
			}
			if rf.Time != nil {
				frame.Time = *rf.Time
				frame.timed = true
			}
			f.Frames = append(f.Frames, frame)
		}
	} else {
		for i, rl := range raw.Landmarks {
			landmarks, err := DecodeLandmarks(rl)
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			f.Frames = append(f.Frames, LandmarkFrame{Index: i, Landmarks: landmarks})
		}
	}

	f.ApplyDefaults(0)
	return nil
}

// DecodeLandmarks decodes a single frame's landmark array. Accepted shapes are a
// flat [x,y,z,visibility,...] float list, [[x,y,z(,visibility)],...] and
// [{"x":..,"y":..,"z":..},...]. A missing pose decodes to nil.
func DecodeLandmarks(data json.RawMessage) ([]Landmark, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLandmarks, err)
	}
	if len(elems) == 0 {
		return nil, nil
	}

	first := bytes.TrimSpace(elems[0])
	if len(first) == 0 {
		return nil, ErrMalformedLandmarks
	}

	switch c := first[0]; {
	case c == '-' || (c >= '0' && c <= '9'):
		var values []float64
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLandmarks, err)
		}
		return decodeFlat(values)
	case c == '[':
		var triples [][]float64
		if err := json.Unmarshal(data, &triples); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLandmarks, err)
		}
		if handsOnly(len(triples)) {
			// 姿勢が検出されず手だけが書かれたフレーム
			return nil, nil
		}
		landmarks := make([]Landmark, len(triples))
		for i, v := range triples {
			switch len(v) {
			case 3:
				landmarks[i] = NewLandmark(v[0], v[1], v[2])
			case 4:
				landmarks[i] = NewLandmarkVisibility(v[0], v[1], v[2], v[3])
			default:
				return nil, fmt.Errorf("%w: point %d has %d values", ErrMalformedLandmarks, i, len(v))
			}
		}
		return landmarks, nil
	case c == '{':
		var landmarks []Landmark
		if err := json.Unmarshal(data, &landmarks); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedLandmarks, err)
		}
		return landmarks, nil
	}

	return nil, ErrMalformedLandmarks
}

func decodeFlat(values []float64) ([]Landmark, error) {
	n := min(len(values), flatPoseValues)
	if n%4 != 0 {
		return nil, fmt.Errorf("%w: %d flat values", ErrMalformedLandmarks, len(values))
	}

	detected := false
	for _, v := range values[:n] {
		if v != 0 {
			detected = true
			break
		}
	}
	if !detected {
		return nil, nil
	}

	landmarks := make([]Landmark, n/4)
	for i := range landmarks {
		v := values[i*4 : i*4+4]
		landmarks[i] = NewLandmarkVisibility(v[0], v[1], v[2], v[3])
	}
	return landmarks, nil
}

// handsOnly reports whether n points can only be hand points: one or two hands
// and no pose prefix in front of them.
func handsOnly(n int) bool {
	if n < handPoints || n%handPoints != 0 || n > maxHands*handPoints {
		return false
	}
	return n < MediaPipePoseV1.Count || (n-MediaPipePoseV1.Count)%handPoints != 0
}
