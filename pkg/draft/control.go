package draft

import "strings"

// Control actions carried by preview buttons.
const (
	ActionConfirm = "send"
	ActionCancel  = "cancel"
)

const (
	controlPrefix    = "draft"
	controlSeparator = "::"
)

// ControlID encodes a button custom ID as draft::<action>::<key>.
func ControlID(action, key string) string {
	return controlPrefix + controlSeparator + action + controlSeparator + key
}

// ParseControlID decodes a custom ID produced by ControlID. Custom IDs owned
// by anything else, or carrying an action other than confirm or cancel,
// report false.
func ParseControlID(customID string) (action, key string, ok bool) {
	parts := strings.SplitN(customID, controlSeparator, 3)
	if len(parts) != 3 || parts[0] != controlPrefix || parts[2] == "" {
		return "", "", false
	}
	switch parts[1] {
	case ActionConfirm, ActionCancel:
		return parts[1], parts[2], true
	default:
		return "", "", false
	}
}
