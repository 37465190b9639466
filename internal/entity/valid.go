package entity

import "math"

// Locatable is implemented by every entity with a position.
type Locatable interface {
	Coords() (lat, lon float64)
}

func (e Earthquake) Coords() (float64, float64)            { return e.Lat, e.Lon }
func (e WeatherAlert) Coords() (float64, float64)          { return e.Lat, e.Lon }
func (e InternetOutage) Coords() (float64, float64)        { return e.Lat, e.Lon }
func (e AisDisruptionEvent) Coords() (float64, float64)    { return e.Lat, e.Lon }
func (e AisDensityZone) Coords() (float64, float64)        { return e.Lat, e.Lon }
func (e CableAdvisory) Coords() (float64, float64)         { return e.Lat, e.Lon }
func (e RepairShip) Coords() (float64, float64)            { return e.Lat, e.Lon }
func (e AirportDelayAlert) Coords() (float64, float64)     { return e.Lat, e.Lon }
func (e MilitaryFlight) Coords() (float64, float64)        { return e.Lat, e.Lon }
func (e MilitaryFlightCluster) Coords() (float64, float64) { return e.Lat, e.Lon }
func (e MilitaryVessel) Coords() (float64, float64)        { return e.Lat, e.Lon }
func (e MilitaryVesselCluster) Coords() (float64, float64) { return e.Lat, e.Lon }
func (e NaturalEvent) Coords() (float64, float64)          { return e.Lat, e.Lon }
func (e Fire) Coords() (float64, float64)                  { return e.Lat, e.Lon }
func (e SocialUnrestEvent) Coords() (float64, float64)     { return e.Lat, e.Lon }
func (e TechEvent) Coords() (float64, float64)             { return e.Lat, e.Lon }
func (e NewsLocation) Coords() (float64, float64)          { return e.Lat, e.Lon }

// ValidCoords reports whether lat/lon is a usable position. (0, 0) is the
// unresolved-location marker and is rejected.
func ValidCoords(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return !(lat == 0 && lon == 0)
}

// Located copies the entries of in that have valid coordinates and returns
// the copy along with the number of skipped entries. The input is never
// modified; a nil or empty input yields an empty, non-nil slice.
func Located[T Locatable](in []T) ([]T, int) {
	out := make([]T, 0, len(in))
	skipped := 0
	for _, v := range in {
		if lat, lon := v.Coords(); !ValidCoords(lat, lon) {
			skipped++
			continue
		}
		out = append(out, v)
	}
	return out, skipped
}
