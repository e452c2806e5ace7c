// Package store provides the camera preset catalog, backed by Postgres
// or by the presets listed in the config file.
package store

import (
	"context"
	"database/sql"

	"github.com/cjeanneret/camoptics/internal/logic/optics"
)

// StaticPresets serves a fixed list, typically from the config file.
type StaticPresets []optics.CameraSystem

// List returns a copy of the presets.
func (s StaticPresets) List(_ context.Context) ([]optics.CameraSystem, error) {
	out := make([]optics.CameraSystem, len(s))
	copy(out, s)
	return out, nil
}

// Get returns the preset called name, or sql.ErrNoRows like PresetRepo.
func (s StaticPresets) Get(_ context.Context, name string) (optics.CameraSystem, error) {
	for _, c := range s {
		if c.Name == name {
			return c, nil
		}
	}
	return optics.CameraSystem{}, sql.ErrNoRows
}
