// Package model holds the plain data types shared across the tracking
// core: the spherical detection as it arrives off the sensor, its
// Cartesian re-projection, and the filtered output record the core
// emits once a scan has been associated.
package model

import "github.com/yeltrix/radartrack/internal/geo"

// Detection is a single radar measurement, immutable once ingested.
type Detection struct {
	R  float64 // range, meters
	Az float64 // azimuth, degrees in [0, 360)
	El float64 // elevation, degrees in [-90, 90]
	T  float64 // seconds
}

// Cartesian re-projects the detection into the Cartesian frame.
func (d Detection) Cartesian() CartesianMeasurement {
	x, y, z := geo.SphToCart(d.Az, d.El, d.R)
	return CartesianMeasurement{X: x, Y: y, Z: z}
}

// CartesianMeasurement is a Detection expressed in meters in the
// Cartesian tracking frame.
type CartesianMeasurement struct {
	X, Y, Z float64
}

// OutputRecord is emitted once per associated scan: the filtered
// position re-projected to spherical, plus the full 6-state.
type OutputRecord struct {
	T     float64
	R     float64
	Az    float64
	El    float64
	State [6]float64 // [x, y, z, vx, vy, vz]
}
