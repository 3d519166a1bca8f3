// Package legislation identifies the access-to-information regimes a request
// can be made under and resolves which one applies to a given request.
package legislation

import (
	"fmt"
	"sort"
	"sync/atomic"
)

// Legislation is a regulatory regime such as the Freedom of Information Act
type Legislation struct {
	Key       string
	ShortName string
	FullName  string
}

const (
	KeyFOI = "foi"
	KeyEIR = "eir"
)

var (
	FOI = Legislation{Key: KeyFOI, ShortName: "FOI", FullName: "Freedom of Information Act"}
	EIR = Legislation{Key: KeyEIR, ShortName: "EIR", FullName: "Environmental Information Regulations"}
)

var all = map[string]Legislation{
	KeyFOI: FOI,
	KeyEIR: EIR,
}

var current atomic.Pointer[Legislation]

func init() {
	l := FOI
	current.Store(&l)
}

// Find returns the registered legislation with the given key
func Find(key string) (Legislation, bool) {
	l, ok := all[key]
	return l, ok
}

// Keys returns the keys of all registered legislation, sorted
func Keys() []string {
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetDefault configures the process-wide default legislation
func SetDefault(key string) error {
	l, ok := Find(key)
	if !ok {
		return fmt.Errorf("unknown legislation %q", key)
	}
	current.Store(&l)
	return nil
}

// Default returns the process-wide default legislation
func Default() Legislation {
	return *current.Load()
}

func (l Legislation) String() string {
	return l.Key
}
