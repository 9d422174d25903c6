package orbit

import (
	"math"
	"time"
)

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)

	// j2000 is the Julian Date of 2000-01-01 12:00 TT.
	j2000 = 2451545.0

	deg = math.Pi / 180.0
)

// julianDate converts a UTC time to a Julian Date.
func julianDate(t time.Time) float64 {
	return float64(t.UnixNano())/float64(24*time.Hour) + 2440587.5
}

// gmst returns Greenwich Mean Sidereal Time in radians (IAU-82, Vallado
// eq. 3-47).
func gmst(t time.Time) float64 {
	tUT1 := (julianDate(t.UTC()) - j2000) / 36525.0

	sec := 67310.54841 +
		(876600.0*3600.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec / 86400.0 * 2.0 * math.Pi
}

// temeToECEF rotates a TEME position (km) about Z by the sidereal angle and
// returns meters. Polar motion and the equation of the equinoxes are
// ignored, which is well inside what a visibility window needs.
func temeToECEF(teme Vec3, theta float64) Vec3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Vec3{
		X: (teme.X*c + teme.Y*s) * 1000.0,
		Y: (-teme.X*s + teme.Y*c) * 1000.0,
		Z: teme.Z * 1000.0,
	}
}

// Observer is a ground location with its Earth-fixed position precomputed.
type Observer struct {
	latRad, lonRad float64
	ecef           Vec3
}

// NewObserver creates an Observer from geodetic degrees and meters above the
// ellipsoid.
func NewObserver(latDeg, lonDeg, altM float64) Observer {
	lat, lon := latDeg*deg, lonDeg*deg
	sinLat := math.Sin(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Observer{
		latRad: lat,
		lonRad: lon,
		ecef: Vec3{
			X: (n + altM) * math.Cos(lat) * math.Cos(lon),
			Y: (n + altM) * math.Cos(lat) * math.Sin(lon),
			Z: (n*(1-wgs84E2) + altM) * sinLat,
		},
	}
}

// Elevation returns the angle in degrees of sat (ECEF meters) above the
// observer's horizon, using the zenith component of the SEZ rotation.
func (o Observer) Elevation(sat Vec3) float64 {
	r := Vec3{X: sat.X - o.ecef.X, Y: sat.Y - o.ecef.Y, Z: sat.Z - o.ecef.Z}

	cosLat, sinLat := math.Cos(o.latRad), math.Sin(o.latRad)
	zenith := cosLat*math.Cos(o.lonRad)*r.X + cosLat*math.Sin(o.lonRad)*r.Y + sinLat*r.Z

	return math.Asin(zenith/r.norm()) / deg
}
