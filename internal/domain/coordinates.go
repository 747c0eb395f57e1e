package domain

import "fmt"

// Immutable WGS84 coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// String renders the pair in the "lon,lat" form routing engines expect.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lon, c.Lat)
}
