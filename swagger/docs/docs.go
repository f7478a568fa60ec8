package docs

// swagger:parameters findSession configureSession setSessionTarget closeSession
type SessionIdParam struct {
	// in: path
	// required: true
	ID string `json:"id"`
}

// swagger:response
type Error struct {
	// The error message
	//in: body
	Message string
}
