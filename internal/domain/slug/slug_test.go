package slug

import (
	"strings"
	"testing"
)

func TestMake(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Abidjan Jazz Night", "abidjan-jazz-night"},
		{"  Fête de la Musique!  ", "fte-de-la-musique"},
		{"100% Tech -- Meetup", "100-tech-meetup"},
		{"---", ""},
		{"Déjà Vu", "dj-vu"},
		{"UPPER case", "upper-case"},
	}

	for _, tt := range tests {
		if got := Make(tt.input); got != tt.want {
			t.Errorf("Make(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSuffix(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		s := Suffix(4)
		if len(s) != 4 {
			t.Fatalf("Suffix(4) returned %q with length %d", s, len(s))
		}
		if strings.ToLower(s) != s {
			t.Errorf("suffix %q is not lowercase", s)
		}
		seen[s] = true
	}
	// 50 draws from 36^4 possibilities should essentially never all collide.
	if len(seen) < 10 {
		t.Errorf("suffixes look non-random: %d distinct out of 50", len(seen))
	}
}
