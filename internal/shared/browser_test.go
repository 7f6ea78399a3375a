package shared

import "testing"

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		goos     string
		wantName string
		wantArgs int
	}{
		{"darwin", "open", 1},
		{"linux", "xdg-open", 1},
		{"windows", "cmd", 3},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := browserCommand(tt.goos, "https://example.test/authorize")
			if err != nil {
				t.Fatalf("browserCommand: %v", err)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %v, want %d of them", args, tt.wantArgs)
			}
			if args[len(args)-1] != "https://example.test/authorize" {
				t.Errorf("url not passed through: %v", args)
			}
		})
	}
}

func TestBrowserCommandUnknownPlatform(t *testing.T) {
	if _, _, err := browserCommand("plan9", "https://example.test"); err == nil {
		t.Error("browserCommand = nil, want error for unsupported platform")
	}
}
