// internal/domain/models/geo.go
package models

// GeoPoint is a GeoJSON point stored on documents that carry a 2dsphere index.
// Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from a longitude/latitude pair.
func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p GeoPoint) Lng() float64 { return p.Coordinates[0] }
func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }

// Valid reports whether the point is a GeoJSON Point inside WGS84 bounds.
func (p GeoPoint) Valid() bool {
	if p.Type != "Point" {
		return false
	}
	lng, lat := p.Lng(), p.Lat()
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}
