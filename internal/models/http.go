// Package models defines the request and response data structures used
// for communication between the client and the URL shortener service.
package models

// Request represents a request to shorten a URL.
type Request struct {
	// URL is the original URL to be shortened.
	URL string `json:"url"`
}

// Response is returned by POST /api/shorturl.
type Response struct {
	// OriginalURL echoes the submitted URL byte-for-byte.
	OriginalURL string `json:"original_url"`

	// ShortURL is the numeric short id.
	ShortURL int64 `json:"short_url"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HelloResponse is returned by GET /api/hello.
type HelloResponse struct {
	Greeting string `json:"greeting"`
}
