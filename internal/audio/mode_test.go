package audio

import "testing"

func TestParseMode(t *testing.T) {
	cases := []struct {
		input   string
		want    CaptureMode
		wantErr bool
	}{
		{"auto", ModeAuto, false},
		{"microphone", ModeMicrophone, false},
		{"loopback", ModeLoopback, false},
		{"api", ModeAPI, false},
		{"  Loopback ", ModeLoopback, false},
		{"AUTO", ModeAuto, false},
		{"speaker", "", true},
		{"", "", true},
	}

	for _, tc := range cases {
		got, err := ParseMode(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q): expected error, got %q", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMode(%q): unexpected error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestResolveMode(t *testing.T) {
	cases := []struct {
		mode CaptureMode
		goos string
		want CaptureMode
	}{
		{ModeAuto, "linux", ModeLoopback},
		{ModeAuto, "windows", ModeLoopback},
		{ModeAuto, "darwin", ModeLoopback},
		{ModeAuto, "freebsd", ModeMicrophone},
		{ModeAuto, "plan9", ModeMicrophone},
		{ModeMicrophone, "linux", ModeMicrophone},
		{ModeLoopback, "freebsd", ModeLoopback},
		{ModeAPI, "windows", ModeAPI},
	}

	for _, tc := range cases {
		if got := ResolveMode(tc.mode, tc.goos); got != tc.want {
			t.Errorf("ResolveMode(%q, %q) = %q, want %q", tc.mode, tc.goos, got, tc.want)
		}
	}
}
