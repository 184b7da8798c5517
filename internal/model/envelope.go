package model

type (
	// Envelope is the uniform response shape: {meta:{code,error?}, data:{...}}.
	Envelope struct {
		Meta Meta `json:"meta"`
		Data any  `json:"data"`
	}

	Meta struct {
		Code  int          `json:"code"`
		Error *EnvelopeErr `json:"error,omitempty"`
	}

	EnvelopeErr struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}

	// Delivery is one retrieved message as surfaced to the receiver. The
	// internal id, state and raw token are never exposed.
	Delivery struct {
		Sender  string `json:"sender"`
		Message string `json:"message"`
		PGPHash string `json:"pgpHash"`
	}

	// Notification is pushed over the watch socket when a message addressed
	// to the watcher becomes deliverable.
	Notification struct {
		Sender string `json:"sender"`
	}
)
