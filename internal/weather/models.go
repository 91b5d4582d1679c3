package weather

import "fmt"

// GeocodeResult is one candidate returned by the geocoding endpoint.
// Fields mirror the OpenWeather direct-geocoding response.
type GeocodeResult struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// UpstreamError carries a non-2xx answer from the weather provider so the API
// layer can propagate the original status code and message.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}
