// Package geo implements the pure spherical/Cartesian coordinate
// transforms used by the tracking core. The azimuth convention is
// east-of-north (measured from +y toward +x), not the mathematical
// convention measured from +x toward +y.
package geo

import "math"

// SphToCart converts a spherical radar measurement (azimuth and
// elevation in degrees, range in meters) into the Cartesian frame.
func SphToCart(azDeg, elDeg, r float64) (x, y, z float64) {
	az := azDeg * math.Pi / 180
	el := elDeg * math.Pi / 180

	x = r * math.Cos(el) * math.Sin(az)
	y = r * math.Cos(el) * math.Cos(az)
	z = r * math.Sin(el)
	return x, y, z
}

// CartToSph converts a Cartesian position back into range, azimuth, and
// elevation (degrees). It is the exact inverse of SphToCart for r > 0 and
// el in (-90, 90).
func CartToSph(x, y, z float64) (r, azDeg, elDeg float64) {
	r = math.Sqrt(x*x + y*y + z*z)
	elDeg = math.Atan2(z, math.Sqrt(x*x+y*y)) * 180 / math.Pi

	// Swap the usual atan2 argument order: azimuth is measured from
	// +y (north) toward +x (east), the opposite sense of the
	// mathematical angle atan2 normally reports from +x toward +y.
	//
	// This departs from the source's literal az = atan2(y,x) with a
	// quadrant-corrected pi/2-or-3pi/2 branch: that formula only agrees
	// with this one for x > 0. For x < 0 (a target west of the sensor)
	// it is off by 180 degrees and fails the exact-round-trip property
	// (e.g. az_in=190 comes back as 10). atan2(x,y) is the single
	// expression that round-trips SphToCart for every quadrant, so it is
	// used here instead -- see DESIGN.md's open-question decisions.
	azDeg = math.Atan2(x, y) * 180 / math.Pi

	// wrap into [0, 360)
	azDeg = math.Mod(azDeg, 360)
	if azDeg < 0 {
		azDeg += 360
	}
	return r, azDeg, elDeg
}
