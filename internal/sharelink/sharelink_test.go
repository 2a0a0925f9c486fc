package sharelink

import (
	"errors"
	"strings"
	"testing"

	"github.com/babelcall/babelcall/internal/lang"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	got, err := Build("https://call.example.com/", "abc-123", lang.English)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(got, "room=abc-123") {
		t.Errorf("link = %q, missing room param", got)
	}
	// An English speaker invites a Spanish speaker.
	if !strings.Contains(got, "lang=es") {
		t.Errorf("link = %q, missing lang=es", got)
	}
}

func TestBuildRequiresPeerID(t *testing.T) {
	t.Parallel()

	if _, err := Build("https://call.example.com/", "", lang.English); err == nil {
		t.Fatal("Build with empty peer id should fail")
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want Link
	}{
		{
			name: "full link",
			raw:  "https://call.example.com/?room=abc-123&lang=es",
			want: Link{PeerID: "abc-123", Language: lang.Spanish},
		},
		{
			name: "room code",
			raw:  "https://call.example.com/?code=familia&lang=en",
			want: Link{RoomCode: "familia", Language: lang.English},
		},
		{
			name: "invalid lang dropped",
			raw:  "https://call.example.com/?room=abc-123&lang=fr",
			want: Link{PeerID: "abc-123"},
		},
		{
			name: "no params",
			raw:  "https://call.example.com/",
			want: Link{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tc.raw)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.raw, err)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	if _, err := Parse("   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Parse of blank input = %v, want ErrEmptyInput", err)
	}
}

func TestPeerID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare id", "abc-123", "abc-123"},
		{"bare id with spaces", "  abc-123  ", "abc-123"},
		{"full url", "https://call.example.com/?room=abc-123&lang=es", "abc-123"},
		{"url without room", "https://call.example.com/?lang=es", "https://call.example.com/?lang=es"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := PeerID(tc.input)
			if err != nil {
				t.Fatalf("PeerID(%q): %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("PeerID(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}

	if _, err := PeerID(""); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("PeerID of empty input = %v, want ErrEmptyInput", err)
	}
}
