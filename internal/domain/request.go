package domain

// ChatRequest is the body of a turn submission.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// CreateSessionResponse is returned after a session is created.
type CreateSessionResponse struct {
	SessionID string   `json:"session_id"`
	Session   *Session `json:"session"`
}

// SummaryResponse carries a generated conversation summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// ErrorResponse is the error body returned by the HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}
