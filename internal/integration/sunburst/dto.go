package sunburst

// loginResponse is the POST /login answer carrying the session JWT.
type loginResponse struct {
	Token string `json:"token"`
}

// qualityResponse is the GET /quality GeoJSON feature collection.
type qualityResponse struct {
	Features []struct {
		Properties struct {
			QualityPercent float64 `json:"quality_percent"`
		} `json:"properties"`
	} `json:"features"`
}
