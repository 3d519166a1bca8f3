package legislation

import "testing"

type stubRequest struct {
	law *Legislation
}

func (s *stubRequest) Legislation() (Legislation, bool) {
	if s == nil || s.law == nil {
		return Legislation{}, false
	}
	return *s.law, true
}

func TestFind(t *testing.T) {
	l, ok := Find("eir")
	if !ok {
		t.Fatal("expected eir to be registered")
	}
	if l != EIR {
		t.Errorf("got %+v, want %+v", l, EIR)
	}

	if _, ok := Find("fio"); ok {
		t.Error("expected unknown key to be missing")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 2 || keys[0] != "eir" || keys[1] != "foi" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestSetDefault(t *testing.T) {
	t.Cleanup(func() { _ = SetDefault(KeyFOI) })

	if err := SetDefault("nope"); err == nil {
		t.Fatal("expected error for unknown legislation")
	}
	if Default() != FOI {
		t.Errorf("default changed after failed SetDefault: %v", Default())
	}

	if err := SetDefault(KeyEIR); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if Default() != EIR {
		t.Errorf("got %v, want eir", Default())
	}
}

func TestResolve(t *testing.T) {
	eir := EIR
	var typedNil *stubRequest

	tests := []struct {
		name string
		ctx  any
		want Legislation
	}{
		{"nil context", nil, FOI},
		{"typed nil context", typedNil, FOI},
		{"context without provider", struct{}{}, FOI},
		{"context without legislation", &stubRequest{}, FOI},
		{"context with legislation", &stubRequest{law: &eir}, EIR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveWith(tt.ctx, FOI); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
