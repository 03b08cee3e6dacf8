package helpers

import (
	"net/url"
	"testing"
)

func TestSetRawQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rawQuery string
		key      string
		value    string
		want     map[string]string
	}{
		{
			name:     "updates existing key",
			rawQuery: "mode=signIn&lang=en",
			key:      "lang",
			value:    "ja",
			want: map[string]string{
				"mode": "signIn",
				"lang": "ja",
			},
		},
		{
			name:     "adds new key when missing",
			rawQuery: "oobCode=abc",
			key:      "lang",
			value:    "es",
			want: map[string]string{
				"oobCode": "abc",
				"lang":    "es",
			},
		},
		{
			name:     "handles empty input",
			rawQuery: "",
			key:      "lang",
			value:    "en",
			want: map[string]string{
				"lang": "en",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := SetRawQuery(tc.rawQuery, tc.key, tc.value)
			values, err := url.ParseQuery(got)
			if err != nil {
				t.Fatalf("ParseQuery returned error: %v", err)
			}
			for k, expected := range tc.want {
				if got := values.Get(k); got != expected {
					t.Errorf("expected %s=%s, got %s", k, expected, got)
				}
			}
		})
	}
}

func TestBuildURL(t *testing.T) {
	t.Parallel()

	if u := BuildURL("/admin/login", "lang=ja"); u != "/admin/login?lang=ja" {
		t.Errorf("unexpected URL: %s", u)
	}
	if u := BuildURL("/admin/login?lang=en", ""); u != "/admin/login" {
		t.Errorf("expected query stripped when empty, got %s", u)
	}
}

func TestEnvironmentCode(t *testing.T) {
	t.Parallel()

	for label, want := range map[string]string{
		"Production":  "PRD",
		"staging":     "STG",
		"":            "DEV",
		"Development": "DEV",
		"qa":          "QA",
		"preview":     "PRE",
	} {
		if got := EnvironmentCode(label); got != want {
			t.Errorf("EnvironmentCode(%q) = %q, want %q", label, got, want)
		}
	}
	if BadgeClass("prod") != "tag is-danger" {
		t.Errorf("production badge should use danger tone")
	}
}
