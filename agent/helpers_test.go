package agent

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// fakePhysics records what the controller asks of the physics collaborator.
type fakePhysics struct {
	poses      map[Object]Pose
	velocities map[Object]r3.Vec
	angular    map[Object]r3.Vec
	forces     []r3.Vec
	rotations  []AngularDelta
}

func newFakePhysics() *fakePhysics {
	return &fakePhysics{
		poses: map[Object]Pose{
			ObjectAgent:  {Rotation: Identity()},
			ObjectSpawn:  {Rotation: Identity()},
			ObjectTarget: {Position: r3.Vec{Z: 5}, Rotation: Identity()},
		},
		velocities: make(map[Object]r3.Vec),
		angular:    make(map[Object]r3.Vec),
	}
}

func (p *fakePhysics) Pose(o Object) Pose                    { return p.poses[o] }
func (p *fakePhysics) Velocity(o Object) r3.Vec              { return p.velocities[o] }
func (p *fakePhysics) SetVelocity(o Object, v r3.Vec)        { p.velocities[o] = v }
func (p *fakePhysics) SetAngularVelocity(o Object, v r3.Vec) { p.angular[o] = v }
func (p *fakePhysics) SetPose(o Object, pose Pose)           { p.poses[o] = pose }
func (p *fakePhysics) ApplyForce(o Object, f r3.Vec)         { p.forces = append(p.forces, f) }

func (p *fakePhysics) Rotate(o Object, axis r3.Vec, deg float64) {
	p.rotations = append(p.rotations, AngularDelta{Axis: axis, Degrees: deg})
	pose := p.poses[o]
	pose.Rotation = quat.Mul(pose.Rotation, AxisAngle(axis, deg))
	p.poses[o] = pose
}

type fakeRenderer struct {
	mu     sync.Mutex
	colors map[Surface]Color
	writes map[Surface][]Color
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		colors: map[Surface]Color{
			SurfaceFloor: {R: 0.5, G: 0.5, B: 0.5, A: 1},
			SurfaceCar:   {B: 1, A: 1},
		},
		writes: make(map[Surface][]Color),
	}
}

func (r *fakeRenderer) SetColor(s Surface, c Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colors[s] = c
	r.writes[s] = append(r.writes[s], c)
}

func (r *fakeRenderer) Color(s Surface) Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.colors[s]
}

type fakeTelemetry struct {
	lines []string
}

func (t *fakeTelemetry) Display(text string) { t.lines = append(t.lines, text) }

// manualScheduler holds callbacks until the test fires them.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTask) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &manualTask{delay: d, f: f}
	s.tasks = append(s.tasks, task)
	return task
}

func (s *manualScheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Fire runs task i if it is still pending.
func (s *manualScheduler) Fire(i int) {
	s.mu.Lock()
	task := s.tasks[i]
	run := !task.stopped && !task.fired
	task.fired = true
	s.mu.Unlock()
	if run {
		task.f()
	}
}

func (s *manualScheduler) FireAll() {
	for i := 0; i < s.Scheduled(); i++ {
		s.Fire(i)
	}
}
