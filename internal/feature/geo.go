package feature

import "math"

// earthRadiusKm is the mean Earth radius used by the trained model.
const earthRadiusKm = 6371

// Haversine returns the great-circle distance in kilometers between
// two points given in decimal degrees.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	rlon1 := radians(lon1)
	rlat1 := radians(lat1)
	rlon2 := radians(lon2)
	rlat2 := radians(lat2)

	sinLat := math.Sin((rlat2 - rlat1) / 2)
	sinLon := math.Sin((rlon2 - rlon1) / 2)

	a := sinLat*sinLat + math.Cos(rlat1)*math.Cos(rlat2)*sinLon*sinLon
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
