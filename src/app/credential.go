package app

// Credential is the resolved session of the caller: the bearer token forwarded
// to the captioning API and the identity votes are recorded under.
type Credential struct {
	Token   string `json:"-"`
	VoterID string `json:"voterId"`
	Email   string `json:"email,omitempty"`
}
