package optics

import (
	"fmt"
)

// CameraSystem describes a sensor + lens combination.
// It is a plain value; build one per calculation.
type CameraSystem struct {
	SensorWidthMm  float64 `json:"sensor_width_mm" yaml:"sensor_width_mm"`
	SensorHeightMm float64 `json:"sensor_height_mm" yaml:"sensor_height_mm"`
	PixelWidth     int     `json:"pixel_width" yaml:"pixel_width"`   // horizontal pixel count
	PixelHeight    int     `json:"pixel_height" yaml:"pixel_height"` // vertical pixel count
	FocalLengthMm  float64 `json:"focal_length_mm" yaml:"focal_length_mm"`
	Name           string  `json:"name,omitempty" yaml:"name,omitempty"`
}

// NewCameraSystem creates an unnamed camera system.
func NewCameraSystem(sensorWidthMm, sensorHeightMm float64, pixelWidth, pixelHeight int, focalLengthMm float64) CameraSystem {
	return CameraSystem{
		SensorWidthMm:  sensorWidthMm,
		SensorHeightMm: sensorHeightMm,
		PixelWidth:     pixelWidth,
		PixelHeight:    pixelHeight,
		FocalLengthMm:  focalLengthMm,
	}
}

// WithName returns a copy of c carrying the given name.
func (c CameraSystem) WithName(name string) CameraSystem {
	c.Name = name
	return c
}

// PixelPitchUm returns the horizontal and vertical pixel pitch in micrometers.
func (c CameraSystem) PixelPitchUm() (h, v float64) {
	h = (c.SensorWidthMm * 1000.0) / float64(c.PixelWidth)
	v = (c.SensorHeightMm * 1000.0) / float64(c.PixelHeight)
	return h, v
}

// AspectRatio returns the sensor and pixel-grid aspect ratios (width / height).
func (c CameraSystem) AspectRatio() (sensor, pixel float64) {
	sensor = c.SensorWidthMm / c.SensorHeightMm
	pixel = float64(c.PixelWidth) / float64(c.PixelHeight)
	return sensor, pixel
}

func (c CameraSystem) String() string {
	name := c.Name
	if name == "" {
		name = "Unnamed"
	}
	h, v := c.PixelPitchUm()
	return fmt.Sprintf("%s: %gx%g mm sensor, %dx%d px (%.2fx%.2f µm), %g mm lens",
		name, c.SensorWidthMm, c.SensorHeightMm, c.PixelWidth, c.PixelHeight, h, v, c.FocalLengthMm)
}

// CameraWithResult pairs a camera system with its FOV result.
type CameraWithResult struct {
	Camera CameraSystem `json:"camera"`
	Result FovResult    `json:"result"`
}

// Validate returns the warnings of both the camera and the result.
func (cr CameraWithResult) Validate() []Warning {
	warnings := cr.Camera.Validate()
	return append(warnings, cr.Result.Validate()...)
}
