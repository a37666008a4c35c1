package host

import "testing"

func TestScriptName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"DoLog", "doLog"},
		{"GetMessage", "getMessage"},
		{"GetMyHome", "getMyHome"},
		{"ID", "id"},
		{"GetID", "getID"},
		{"HTTPServer", "httpServer"},
		{"URL", "url"},
		{"X", "x"},
		{"already", "already"},
		{"Get2D", "get2D"},
		{"UTF8Decode", "utf8Decode"},
	}

	for _, tt := range tests {
		if got := scriptName(tt.in); got != tt.want {
			t.Errorf("scriptName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
