package agent

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	Up      = r3.Vec{Y: 1}
	Forward = r3.Vec{Z: 1}
)

// Pose is a position and orientation snapshot of a scene object.
type Pose struct {
	Position r3.Vec
	Rotation quat.Number
}

// Identity is the rotation of an object facing +Z with +Y up.
func Identity() quat.Number {
	return quat.Number{Real: 1}
}

// Yaw returns a rotation of deg degrees about the up axis.
func Yaw(deg float64) quat.Number {
	return AxisAngle(Up, deg)
}

// AxisAngle returns a rotation of deg degrees about axis.
func AxisAngle(axis r3.Vec, deg float64) quat.Number {
	return quat.Number(r3.NewRotation(deg*math.Pi/180, axis))
}

// Rotate applies the orientation q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	if q == (quat.Number{}) {
		return v
	}
	return r3.Rotation(q).Rotate(v)
}

// InverseTransformPoint expresses the world point p in the local frame of pose.
func InverseTransformPoint(pose Pose, p r3.Vec) r3.Vec {
	return Rotate(quat.Conj(pose.Rotation), r3.Sub(p, pose.Position))
}

// TransformForward is the forward direction of the given orientation.
func TransformForward(q quat.Number) r3.Vec {
	return Rotate(q, Forward)
}
