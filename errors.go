package yolorank

import "errors"

// Sentinel errors for conditions callers may need to handle differently.
var (
	// ErrModelNotFound indicates the model file does not exist.
	ErrModelNotFound = errors.New("yolorank: model file not found")

	// ErrInvalidModel indicates the model file exists but cannot be loaded
	// as a detection model.
	ErrInvalidModel = errors.New("yolorank: invalid model format")

	// ErrNoImages indicates profiling was requested without any images.
	ErrNoImages = errors.New("yolorank: no images to profile")
)
