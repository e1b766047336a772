package models

// CountryRecord is the subset of a geolocation result the redirect logic uses.
type CountryRecord struct {
	IsoCode string `json:"iso_code"`
	Name    string `json:"name"`
}
