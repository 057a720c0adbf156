package capability

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestAsError(t *testing.T) {
	if AsError(nil) != nil {
		t.Error("AsError(nil) should be nil")
	}

	orig := NewError(ReasonNotLoggedIn, "User Not Logged In", nil)
	if got := AsError(fmt.Errorf("wrapped: %w", orig)); got != orig {
		t.Errorf("AsError lost the provider error: %+v", got)
	}

	got := AsError(errors.New("socket closed"))
	if got.Code != ReasonUnknown || got.Message != "socket closed" {
		t.Errorf("AsError(foreign) = %+v", got)
	}
}

func TestUnsupported(t *testing.T) {
	err := Unsupported(KindPhoneVerifier)
	if err.Code != ReasonUnsupported {
		t.Errorf("code = %s", err.Code)
	}
	details := err.Details.(map[string]interface{})
	if details["capability"] != "phoneVerifier" {
		t.Errorf("details = %v", details)
	}
}

func TestSet_CloseRunsAllAndReportsFirst(t *testing.T) {
	var ran []string
	s := &Set{}
	s.OnClose(func() error { ran = append(ran, "a"); return errors.New("first") })
	s.OnClose(func() error { ran = append(ran, "b"); return errors.New("second") })

	err := s.Close()
	if err == nil || err.Error() != "first" {
		t.Errorf("Close() = %v", err)
	}
	if len(ran) != 2 {
		t.Errorf("ran = %v", ran)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if len(ran) != 2 {
		t.Error("closers ran twice")
	}
}

func TestProfile_JSONKeys(t *testing.T) {
	url := "https://sdk.bitmoji.com/avatar.png"
	data, err := json.Marshal(&Profile{ExternalID: "ext-1", DisplayName: "Ada", BitmojiAvatarURL: &url})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	json.Unmarshal(data, &m)
	for _, key := range []string{"externalId", "displayName", "bitmojiAvatarId", "bitmoji2DAvatarUrl", "errors"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %s in %s", key, data)
		}
	}
	if m["bitmojiAvatarId"] != nil {
		t.Errorf("absent avatar id should be null, got %v", m["bitmojiAvatarId"])
	}
}
