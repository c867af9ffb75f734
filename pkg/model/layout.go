package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrUnknownLayout = errors.New("unknown landmark layout")

// LandmarkLayout pins the array indices of the upstream pose model. A change in the
// upstream ordering is a new layout version, never an edit of an existing one.
type LandmarkLayout struct {
	Name    string
	Version int
	Count   int

	RightShoulder int
	RightElbow    int
	RightWrist    int
	LeftShoulder  int
	LeftElbow     int
	LeftWrist     int
}

func (l LandmarkLayout) String() string {
	return fmt.Sprintf("%s@%d", l.Name, l.Version)
}

// MediaPipe Pose / BlazePose, 33 points.
var MediaPipePoseV1 = LandmarkLayout{
	Name:          "mediapipe-pose",
	Version:       1,
	Count:         33,
	RightShoulder: 12,
	RightElbow:    14,
	RightWrist:    16,
	LeftShoulder:  11,
	LeftElbow:     13,
	LeftWrist:     15,
}

// COCO keypoints, 17 points.
var Coco17V1 = LandmarkLayout{
	Name:          "coco-17",
	Version:       1,
	Count:         17,
	RightShoulder: 6,
	RightElbow:    8,
	RightWrist:    10,
	LeftShoulder:  5,
	LeftElbow:     7,
	LeftWrist:     9,
}

var DefaultLayout = MediaPipePoseV1

var layouts = []LandmarkLayout{MediaPipePoseV1, Coco17V1}

// LookupLayout resolves "name" (latest version) or "name@version".
func LookupLayout(key string) (LandmarkLayout, error) {
	name, version := strings.TrimSpace(key), 0
	if at := strings.LastIndex(name, "@"); at >= 0 {
		v, err := strconv.Atoi(name[at+1:])
		if err != nil {
			return LandmarkLayout{}, fmt.Errorf("%w: %q", ErrUnknownLayout, key)
		}
		name, version = name[:at], v
	}

	var found *LandmarkLayout
	for i := range layouts {
		l := &layouts[i]
		if l.Name != name {
			continue
		}
		if version != 0 && l.Version == version {
			return *l, nil
		}
		if version == 0 && (found == nil || l.Version > found.Version) {
			found = l
		}
	}
	if found == nil {
		return LandmarkLayout{}, fmt.Errorf("%w: %q", ErrUnknownLayout, key)
	}
	return *found, nil
}

func LayoutNames() []string {
	names := make([]string, 0, len(layouts))
	for _, l := range layouts {
		names = append(names, l.String())
	}
	sort.Strings(names)
	return names
}
