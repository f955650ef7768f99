package models

import (
	"errors"
	"math"
)

var (
	ErrNoSource          = errors.New("no source loaded")
	ErrInvalidTransition = errors.New("invalid run state transition")
	ErrMalformedFrame    = errors.New("malformed frame buffer")
)

// DegreesToRadians converts a control value in degrees to the radians the engine uses
const DegreesToRadians = math.Pi / 180
