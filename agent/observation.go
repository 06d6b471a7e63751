package agent

import "gonum.org/v1/gonum/spatial/r3"

// Observation is the fixed-length input vector handed to the policy:
// target position in the agent frame (x, y, z), then planar velocity (x, z).
type Observation []float64

// Encode builds the observation for one tick. The vertical velocity is
// dropped since the task is planar.
func Encode(agentPose, targetPose Pose, velocity r3.Vec) Observation {
	local := InverseTransformPoint(agentPose, targetPose.Position)
	return Observation{local.X, local.Y, local.Z, velocity.X, velocity.Z}
}

// TargetLocal returns the target-in-agent-frame part of the observation.
func (o Observation) TargetLocal() r3.Vec {
	return r3.Vec{X: o[0], Y: o[1], Z: o[2]}
}

// Velocity returns the planar velocity part of the observation.
func (o Observation) Velocity() (x, z float64) {
	return o[3], o[4]
}
