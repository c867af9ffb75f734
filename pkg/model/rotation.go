package model

import (
	"github.com/go-gl/mathgl/mgl64"
)

type JointName string

const (
	RightArm     JointName = "mixamorigRightArm"
	RightForeArm JointName = "mixamorigRightForeArm"
	LeftArm      JointName = "mixamorigLeftArm"
	LeftForeArm  JointName = "mixamorigLeftForeArm"
)

// AllJoints is the closed set of joints a rotation map may carry, in export order.
var AllJoints = []JointName{RightArm, RightForeArm, LeftArm, LeftForeArm}

func (j JointName) String() string {
	return string(j)
}

func (j JointName) Valid() bool {
	for _, k := range AllJoints {
		if j == k {
			return true
		}
	}
	return false
}

func ShoulderJoint(side Side) JointName {
	if side == Left {
		return LeftArm
	}
	return RightArm
}

func ForeArmJoint(side Side) JointName {
	if side == Left {
		return LeftForeArm
	}
	return RightForeArm
}

// Rotation is a local Euler rotation in radians, XYZ order.
type Rotation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (r Rotation) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{r.X, r.Y, r.Z}
}

func (r Rotation) Quat() mgl64.Quat {
	return mgl64.AnglesToQuat(r.X, r.Y, r.Z, mgl64.XYZ).Normalize()
}

func (r Rotation) Lerp(to Rotation, t float64) Rotation {
	return Rotation{
		X: r.X + (to.X-r.X)*t,
		Y: r.Y + (to.Y-r.Y)*t,
		Z: r.Z + (to.Z-r.Z)*t,
	}
}

// JointRotationMap is the per-frame output handed to the rig. A nil map means no
// pose was detected.
type JointRotationMap map[JointName]Rotation

func (m JointRotationMap) Clone() JointRotationMap {
	if m == nil {
		return nil
	}
	c := make(JointRotationMap, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
