package legislation

import "reflect"

// Provider is implemented by request-like values that know which legislation
// applies to them. ok is false when the value has no opinion.
type Provider interface {
	Legislation() (l Legislation, ok bool)
}

// Resolve returns the legislation exposed by ctx, or the process-wide default
// when ctx is nil, does not implement Provider, or declines to answer.
func Resolve(ctx any) Legislation {
	return ResolveWith(ctx, Default())
}

// ResolveWith is Resolve with an explicit fallback.
func ResolveWith(ctx any, fallback Legislation) Legislation {
	if isNil(ctx) {
		return fallback
	}
	p, ok := ctx.(Provider)
	if !ok {
		return fallback
	}
	if l, ok := p.Legislation(); ok {
		return l
	}
	return fallback
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
