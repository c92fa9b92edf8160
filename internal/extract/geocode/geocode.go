// Package geocode resolves coordinates to place names fully offline.
//
// The embedded dataset holds major cities worldwide. Resolution is
// deliberately coarse: photo metadata needs "which city", not street
// level accuracy.
package geocode

import (
	_ "embed"
	"math"
	"strconv"
	"strings"
	"sync"
)

//go:embed cities.csv
var citiesCSV string

type city struct {
	name    string
	admin   string
	country string
	lat     float64
	lon     float64
}

var (
	loadOnce sync.Once
	cities   []city
)

// load parses the embedded dataset. Malformed rows are dropped.
func load() {
	for _, line := range strings.Split(citiesCSV, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			continue
		}
		lat, err1 := strconv.ParseFloat(fields[3], 64)
		lon, err2 := strconv.ParseFloat(fields[4], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		cities = append(cities, city{
			name:    fields[0],
			admin:   fields[1],
			country: fields[2],
			lat:     lat,
			lon:     lon,
		})
	}
}

// Reverse returns "city, region, country" for the nearest known city,
// or "city, country" when no region is recorded.
func Reverse(lat, lon float64) string {
	loadOnce.Do(load)

	best := -1
	bestDist := math.MaxFloat64
	for i := range cities {
		d := haversine(lat, lon, cities[i].lat, cities[i].lon)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return ""
	}

	c := cities[best]
	if c.admin == "" {
		return c.name + ", " + c.country
	}
	return c.name + ", " + c.admin + ", " + c.country
}

// haversine returns the great-circle distance in kilometres.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0

	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
