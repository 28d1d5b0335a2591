package breaker

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"closed state", StateClosed, "closed"},
		{"open state", StateOpen, "open"},
		{"half-open state", StateHalfOpen, "half-open"},
		{"unknown state", State(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    State
		wantErr bool
	}{
		{"closed", "closed", StateClosed, false},
		{"open", "open", StateOpen, false},
		{"half-open", "half-open", StateHalfOpen, false},
		{"unknown name", "tripped", StateClosed, true},
		{"empty", "", StateClosed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseState(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseState(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseState(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseState_RoundTrip(t *testing.T) {
	for _, s := range []State{StateClosed, StateOpen, StateHalfOpen} {
		got, err := ParseState(s.String())
		if err != nil {
			t.Fatalf("ParseState(%q) unexpected error: %v", s.String(), err)
		}
		if got != s {
			t.Errorf("ParseState(%q) = %v, want %v", s.String(), got, s)
		}
	}
}
