package mathutil

import "math"

var (
	// ModelFlip converts Z-up (DirectX) to Y-up (OpenGL): Rx(-90°)
	ModelFlip = RotX(math.Pi / -2)

	// OverlayView is the three-quarter camera used for bone overlay previews.
	// Rx(-15°) @ Ry(30°)
	OverlayView = Mat3Mul(RotX(Deg2Rad(-15)), RotY(Deg2Rad(30)))
)
