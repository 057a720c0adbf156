package commsutil

import "testing"

func TestBuildChannelSubject(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		channel string
		want    string
	}{
		{"default", DefaultBridgePrefix, DefaultChannel, "snapkit.bridge.snapkit"},
		{"dotted channel", "bridge", "snap.kit", "bridge.snap_kit"},
		{"wildcards stripped", "bridge", "a*b>", "bridge.a_b_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildChannelSubject(tt.prefix, tt.channel)
			if got != tt.want {
				t.Errorf("BuildChannelSubject(%q, %q) = %q, want %q", tt.prefix, tt.channel, got, tt.want)
			}
		})
	}
}

func TestBuildLifecycleSubject(t *testing.T) {
	got := BuildLifecycleSubject("snapkit.bridge.snapkit")
	if got != "snapkit.bridge.snapkit.lifecycle" {
		t.Errorf("BuildLifecycleSubject() = %q", got)
	}
}

func TestBuildEventSubject(t *testing.T) {
	got := BuildEventSubject(DefaultEventsPrefix, "session.login")
	if got != "snapkit.events.session.login" {
		t.Errorf("BuildEventSubject() = %q", got)
	}
}

func TestBuildNativeSubject(t *testing.T) {
	tests := []struct {
		name   string
		hostID string
		want   string
	}{
		{"simple", "main-activity", "snapkit.native.main-activity"},
		{"dotted", "com.example.MainActivity", "snapkit.native.com_example_MainActivity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildNativeSubject(DefaultNativePrefix, tt.hostID)
			if got != tt.want {
				t.Errorf("BuildNativeSubject(%q) = %q, want %q", tt.hostID, got, tt.want)
			}
		})
	}
}
