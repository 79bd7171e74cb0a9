package api

const (
	// Query Parameters
	ParamStatus = "status"
	ParamID     = "id"
)
