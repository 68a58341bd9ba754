package interfaces

// JSON bodies of the HTTP surfaces shared by participants, the registry and
// their clients.

// MessageBody is the body of a forwarding or delivery call.
type MessageBody struct {
	Message string `json:"message"`
}

// SendMessageBody is the body of a user's send-message entry point.
type SendMessageBody struct {
	Message           string  `json:"message"`
	DestinationUserID *uint32 `json:"destinationUserId,omitempty"`
	// DestinationID is accepted as an alias of DestinationUserID.
	DestinationID *uint32 `json:"destinationId,omitempty"`
}

// Destination returns the destination user id, preferring DestinationUserID.
func (b SendMessageBody) Destination() (uint32, bool) {
	switch {
	case b.DestinationUserID != nil:
		return *b.DestinationUserID, true
	case b.DestinationID != nil:
		return *b.DestinationID, true
	default:
		return 0, false
	}
}

// ResultBody wraps the value returned by an observability endpoint.
type ResultBody struct {
	Result interface{} `json:"result"`
}

// ErrorBody is returned with every client or server error status.
type ErrorBody struct {
	Error string `json:"error"`
}

// NodeEntry is one relay as listed by the directory. PubKey is text encoded.
type NodeEntry struct {
	NodeID uint32 `json:"nodeId"`
	PubKey string `json:"pubKey"`
}

// RegistryBody is the directory listing.
type RegistryBody struct {
	Nodes []NodeEntry `json:"nodes"`
}
