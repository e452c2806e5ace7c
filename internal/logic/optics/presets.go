package optics

// Common sensor formats with a typical lens for each.
var (
	PresetFullFrame50 = CameraSystem{36.0, 24.0, 6000, 4000, 50.0, "Full Frame - 50mm"}
	PresetAPSC35      = CameraSystem{23.5, 15.6, 6000, 4000, 35.0, "APS-C - 35mm"}
	PresetMFT25       = CameraSystem{17.3, 13.0, 5184, 3888, 25.0, "Micro 4/3 - 25mm"}
)

// Presets returns the built-in comparison set.
func Presets() []CameraSystem {
	return []CameraSystem{PresetFullFrame50, PresetAPSC35, PresetMFT25}
}
