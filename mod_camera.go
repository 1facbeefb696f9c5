package helio

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraModule owns the per-frame camera constants. A fly-style controller:
// callers feed Move/Look each frame (from whatever input source they have)
// and the update system integrates them and rebuilds the scene matrices.
type CameraModule struct{}

// CameraState is the camera resource.
type CameraState struct {
	Position mgl32.Vec3
	Yaw      float32 // degrees
	Pitch    float32 // degrees

	FOV  float32 // vertical, degrees
	Near float32
	Far  float32

	Speed       float32
	Sensitivity float32

	// Per-frame control inputs, consumed by the update system.
	Move mgl32.Vec3 // x right, y up, z forward
	Look mgl32.Vec2 // yaw delta, pitch delta
}

func (m CameraModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&CameraState{
		Position:    mgl32.Vec3{0, 1, 3},
		FOV:         60,
		Near:        0.1,
		Far:         1000,
		Speed:       5.0,
		Sensitivity: 0.1,
	})
	app.UseSystem(System(cameraUpdateSystem).InStage(PostUpdate))
}

func cameraUpdateSystem(cam *CameraState, scene *Scene, display *Display, t *Time, cmd *Commands) {
	dt := float32(t.Dt.Seconds())

	cam.Yaw += cam.Look[0] * cam.Sensitivity
	cam.Pitch -= cam.Look[1] * cam.Sensitivity
	if cam.Pitch > 89.0 {
		cam.Pitch = 89.0
	}
	if cam.Pitch < -89.0 {
		cam.Pitch = -89.0
	}
	cam.Look = mgl32.Vec2{}

	yawRad := mgl32.DegToRad(cam.Yaw)
	pitchRad := mgl32.DegToRad(cam.Pitch)

	forward := mgl32.Vec3{
		float32(math.Sin(float64(yawRad)) * math.Cos(float64(pitchRad))),
		float32(math.Sin(float64(pitchRad))),
		float32(-math.Cos(float64(yawRad)) * math.Cos(float64(pitchRad))),
	}.Normalize()
	right := forward.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	up := mgl32.Vec3{0, 1, 0}

	moveDir := mgl32.Vec3{}
	moveDir = moveDir.Add(right.Mul(cam.Move[0]))
	moveDir = moveDir.Add(up.Mul(cam.Move[1]))
	moveDir = moveDir.Add(forward.Mul(cam.Move[2]))
	if moveDir.Len() > 0 && dt > 0 {
		cam.Position = cam.Position.Add(moveDir.Normalize().Mul(cam.Speed * dt))
	}
	cam.Move = mgl32.Vec3{}

	width, height := display.ActiveExtent()
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}

	view := mgl32.LookAtV(cam.Position, cam.Position.Add(forward), up)
	proj := mgl32.Perspective(mgl32.DegToRad(cam.FOV), aspect, cam.Near, cam.Far)
	viewProj := proj.Mul4(view)

	scene.Info.PrevViewProj = scene.Info.ViewProj
	scene.Info.ViewProj = viewProj
	scene.Info.InvViewProj = viewProj.Inv()
	scene.Info.CameraPos = cam.Position.Vec4(1)

	// First frame: no history yet, reuse the current matrix so motion
	// vectors start at zero.
	if scene.Info.PrevViewProj == (mgl32.Mat4{}) {
		scene.Info.PrevViewProj = viewProj
	}
}
