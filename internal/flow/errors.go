package flow

import "errors"

// ErrMalformedChoice indicates a stale or tampered action tag. The flow is
// aborted and the conversation's drafts are cleared.
var ErrMalformedChoice = errors.New("malformed choice")
