package nominatim

// searchResult is one entry of the /search JSON response. Nominatim
// serializes coordinates as strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
