package types

// Event is the flattened form of an emitted event: a type plus string
// attributes, as stored by recorders and rendered by farmctl.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
