package version

import "testing"

func TestInfoString(t *testing.T) {
	cases := []struct {
		info Info
		want string
	}{
		{info: Info{Version: "dev"}, want: "dev"},
		{info: Info{Version: "v1.0.0", Commit: "abc"}, want: "v1.0.0 (abc)"},
		{info: Info{Version: "v1.0.0", Commit: "0123456789abcdef"}, want: "v1.0.0 (0123456)"},
	}
	for _, tc := range cases {
		if got := tc.info.String(); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestGetReportsGoVersion(t *testing.T) {
	info := Get()
	if info.GoVersion == "" {
		t.Fatal("expected go version")
	}
	if info.Version != Version {
		t.Fatalf("expected %q, got %q", Version, info.Version)
	}
}
