package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/soracane/lastgen/internal/services"
	"github.com/soracane/lastgen/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

func testRunner(t *testing.T, config *shared.Config) (*Runner, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{Config: config, Output: buf})
	return r, buf
}

func TestWriteJSON(t *testing.T) {
	r, buf := testRunner(t, nil)

	data := map[string]string{"key": "value"}
	if err := r.writeJSON(data, false); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["key"] != "value" {
		t.Errorf("got %v", got)
	}
}

func TestWriteJSONPretty(t *testing.T) {
	r, buf := testRunner(t, nil)

	if err := r.writeJSON(map[string]string{"key": "value"}, true); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("pretty output not indented")
	}
}

func TestWritePlain(t *testing.T) {
	r, buf := testRunner(t, nil)

	if err := r.writePlain("count: %d\n", 3); err != nil {
		t.Fatalf("writePlain: %v", err)
	}
	if buf.String() != "count: 3\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestUserResolution(t *testing.T) {
	config := shared.DefaultConfig()
	config.Credentials.LastFM.User = "configured"
	r, _ := testRunner(t, config)

	tests := []struct {
		name    string
		flag    string
		want    string
		wantErr bool
	}{
		{"flag wins", "flagged", "flagged", false},
		{"config fallback", "", "configured", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cli.Command{
				Flags: []cli.Flag{&cli.StringFlag{Name: "user"}},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					got, err := r.user(cmd)
					if (err != nil) != tt.wantErr {
						t.Errorf("user() error = %v", err)
					}
					if got != tt.want {
						t.Errorf("user() = %q, want %q", got, tt.want)
					}
					return nil
				},
			}

			args := []string{"test"}
			if tt.flag != "" {
				args = append(args, "--user", tt.flag)
			}
			if err := cmd.Run(context.Background(), args); err != nil {
				t.Fatalf("Run: %v", err)
			}
		})
	}
}

func TestUserResolutionMissing(t *testing.T) {
	config := shared.DefaultConfig()
	config.Credentials.LastFM.User = ""
	r, _ := testRunner(t, config)

	cmd := &cli.Command{
		Flags: []cli.Flag{&cli.StringFlag{Name: "user"}},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if _, err := r.user(cmd); err == nil {
				t.Error("user() = nil error, want missing-argument error")
			}
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"test"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRegisterCommands(t *testing.T) {
	r, _ := testRunner(t, nil)

	want := map[string]bool{
		"setup": false, "auth": false, "history": false,
		"top": false, "playlist": false, "variants": false, "tui": false,
	}
	for _, cmd := range r.register() {
		if _, ok := want[cmd.Name]; ok {
			want[cmd.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestNewRunnerWiresEngine(t *testing.T) {
	config := shared.DefaultConfig()

	lastfm, err := services.NewLastFMService(shared.LastFMConfig{APIKey: "key"}, nil)
	if err != nil {
		t.Fatalf("NewLastFMService: %v", err)
	}
	spotify, err := services.NewSpotifyService(map[string]string{
		"client_id": "id", "client_secret": "secret",
	}, nil)
	if err != nil {
		t.Fatalf("NewSpotifyService: %v", err)
	}
	if err := spotify.OAuthenticate(context.Background(), &oauth2.Token{AccessToken: "t"}); err != nil {
		t.Fatalf("OAuthenticate: %v", err)
	}

	r := NewRunner(RunnerOpts{Config: config, LastFM: lastfm, Spotify: spotify})
	if r.history == nil {
		t.Error("history service not wired from Last.fm client")
	}
	if r.engine == nil {
		t.Error("engine not wired when both services are present")
	}
}

func TestNewRunnerWithoutServices(t *testing.T) {
	r, _ := testRunner(t, nil)
	if r.history != nil || r.engine != nil {
		t.Error("runner wired services from nothing")
	}

	err := r.HistoryUpdate(context.Background(), &cli.Command{})
	if err == nil {
		t.Error("HistoryUpdate without services = nil, want error")
	}
}
