// Package msgs provides L1 protocol support and all message schemas.
package msgs

// L1 protocol is communicated between the board proxy (L1 controller) and
// the driving pipeline (L2), and uses hardware-agnostic primitives:
// speed in board units, angles in radians and distances in meters.
//
// Producer: L1 controller
// Consumer: L2 brain
