package api

// recordRequest is the body of POST and PUT. Pointer fields distinguish a
// missing field from an empty string.
type recordRequest struct {
	Name   *string `json:"name"`
	Branch *string `json:"branch"`
}

// idRequest is the body of DELETE.
type idRequest struct {
	Name *string `json:"name"`
}

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
