package refusal

// Question is a node in the refusal advice tree. Questions and actions share
// this shape; a suggestion is itself a Question, so trees nest arbitrarily.
type Question struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title,omitempty"`
	Target      map[string]string `json:"target,omitempty"`
	Suggestions []Question        `json:"suggestions,omitempty"`
}

// Equal reports structural equality, including nested suggestions. Nil and
// empty collections are treated alike.
func (q Question) Equal(o Question) bool {
	if q.ID != o.ID || q.Title != o.Title {
		return false
	}
	if len(q.Target) != len(o.Target) {
		return false
	}
	for k, v := range q.Target {
		ov, ok := o.Target[k]
		if !ok || ov != v {
			return false
		}
	}
	return EqualQuestions(q.Suggestions, o.Suggestions)
}

// EqualQuestions compares two ordered sequences of nodes
func EqualQuestions(a, b []Question) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Internal reports whether the node targets an action inside the site that
// only the request owner can take
func (q Question) Internal() bool {
	_, ok := q.Target["internal"]
	return ok
}

// Walk visits q and then each nested suggestion depth-first. Returning false
// from fn stops the walk.
func (q Question) Walk(fn func(Question) bool) bool {
	if !fn(q) {
		return false
	}
	for _, s := range q.Suggestions {
		if !s.Walk(fn) {
			return false
		}
	}
	return true
}

// Find searches a sequence of trees for the node with the given id
func Find(nodes []Question, id string) (Question, bool) {
	var found Question
	var ok bool
	for _, n := range nodes {
		n.Walk(func(q Question) bool {
			if q.ID == id {
				found, ok = q, true
				return false
			}
			return true
		})
		if ok {
			break
		}
	}
	return found, ok
}
