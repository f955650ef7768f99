package models

// Control identifies a UI control the controller or synchronizer drives
type Control int

const (
	ControlStart Control = iota
	ControlPause
	ControlStop
	ControlScaling
	ControlUndistort
	ControlHysteresisMax
	ControlRotation
	ControlSwipeClusters
	ControlNumInit
)

func (c Control) String() string {
	switch c {
	case ControlStart:
		return "start"
	case ControlPause:
		return "pause"
	case ControlStop:
		return "stop"
	case ControlScaling:
		return "scaling"
	case ControlUndistort:
		return "undistort"
	case ControlHysteresisMax:
		return "hysteresis_max"
	case ControlRotation:
		return "rotation"
	case ControlSwipeClusters:
		return "swipe_clusters"
	case ControlNumInit:
		return "num_init"
	default:
		return "unknown"
	}
}
