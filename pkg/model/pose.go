package model

// NamedPose holds the six arm landmarks of one frame. A nil field means the
// landmark was not available.
type NamedPose struct {
	RightShoulder *Landmark `json:"rightShoulder"`
	RightElbow    *Landmark `json:"rightElbow"`
	RightWrist    *Landmark `json:"rightWrist"`
	LeftShoulder  *Landmark `json:"leftShoulder"`
	LeftElbow     *Landmark `json:"leftElbow"`
	LeftWrist     *Landmark `json:"leftWrist"`
}

type Side int

const (
	Right Side = iota
	Left
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Arm returns shoulder, elbow and wrist of one side.
func (p *NamedPose) Arm(side Side) (shoulder, elbow, wrist *Landmark) {
	if p == nil {
		return nil, nil, nil
	}
	if side == Left {
		return p.LeftShoulder, p.LeftElbow, p.LeftWrist
	}
	return p.RightShoulder, p.RightElbow, p.RightWrist
}
