package model

// AttemptError records a failed invocation and the condition that
// rejected it, so a caller can classify exactly why an attempt failed.
type AttemptError struct {
	VenueA string `json:"venue_a"`
	VenueB string `json:"venue_b"`
	Amount string `json:"amount"`
	Height uint64 `json:"height"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}
