package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// Action tag prefixes. A tag is "<prefix>:<payload>"; the payload is an
// entity id except for month (a label) and resubmit ("yes:<task id>" / "no").
const (
	actionRole     = "role"
	actionBranch   = "branch"
	actionClass    = "class"
	actionTask     = "task"
	actionMonth    = "month"
	actionResubmit = "resubmit"
)

func tag(prefix string, payload string) string {
	return prefix + ":" + payload
}

func idTag(prefix string, id int64) string {
	return tag(prefix, strconv.FormatInt(id, 10))
}

func splitAction(action string) (prefix, payload string) {
	prefix, payload, _ = strings.Cut(action, ":")
	return prefix, payload
}

// parseID parses an entity id embedded in an action tag. A malformed id
// indicates a stale or tampered reference and is fatal to the flow.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad id %q", ErrMalformedChoice, raw)
	}
	return id, nil
}
