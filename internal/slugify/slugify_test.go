package slugify

import "testing"

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Room BG":        "room-bg",
		"  leading":      "leading",
		"trailing   ":    "trailing",
		"multi---dash":   "multi-dash",
		"Wallpaper_Left": "wallpaper-left",
		"":                "",
		"___":             "",
		"a_b-c d":         "a-b-c-d",
		"MixedCASE123":    "mixedcase123",
	}

	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
