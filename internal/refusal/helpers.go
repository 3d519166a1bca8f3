package refusal

import "github.com/jjenkins/foirequests/internal/model"

// Actionable reports whether the user may act on an action. Actions that
// target something inside the site are only actionable by the request
// owner; a userID of 0 means nobody is signed in.
func Actionable(action Question, request *model.InfoRequest, userID int64) bool {
	if !action.Internal() {
		return true
	}
	return userID != 0 && request != nil && request.UserID == userID
}

// LatestRefusals returns the refusal reasons of the most recent response
// that recorded any
func LatestRefusals(request *model.InfoRequest) []string {
	if request == nil {
		return []string{}
	}
	for i := len(request.IncomingMessages) - 1; i >= 0; i-- {
		if r := request.IncomingMessages[i].Refusals; len(r) > 0 {
			out := make([]string, len(r))
			copy(out, r)
			return out
		}
	}
	return []string{}
}

// FormData returns the values used to prefill the refusal advice wizard
func FormData(request *model.InfoRequest) map[string]any {
	if request == nil {
		return map[string]any{}
	}
	return map[string]any{"refusals": LatestRefusals(request)}
}
