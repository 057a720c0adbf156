package dispatcher

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestArguments_String(t *testing.T) {
	args := Arguments{"phoneNumber": "5551234", "region": 1, "caption": nil}

	if s, err := args.String("phoneNumber"); err != nil || s != "5551234" {
		t.Errorf("String(phoneNumber) = %q, %v", s, err)
	}

	_, err := args.String("region")
	var argErr *ArgError
	if !errors.As(err, &argErr) || argErr.Missing() || argErr.Got != "number" {
		t.Errorf("expected type error for region, got %v", err)
	}

	_, err = args.String("missing")
	if !errors.As(err, &argErr) || !argErr.Missing() {
		t.Errorf("expected missing error, got %v", err)
	}

	if s, err := args.OptionalString("caption"); err != nil || s != "" {
		t.Errorf("OptionalString(caption) = %q, %v", s, err)
	}
	if _, err := args.OptionalString("region"); err == nil {
		t.Error("OptionalString must not coerce a number")
	}
}

func TestArguments_NumberNeverCoercesStrings(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    float64
		wantErr bool
	}{
		{"float64", 1.5, 1.5, false},
		{"int", 3, 3, false},
		{"int64", int64(-4), -4, false},
		{"uint64", uint64(7), 7, false},
		{"json number", json.Number("2.25"), 2.25, false},
		{"numeric string", "10", 0, true},
		{"bool", true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Arguments{"n": tt.value}.Number("n")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Number() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Number() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArguments_Bool(t *testing.T) {
	if b, err := (Arguments{"b": true}).Bool("b"); err != nil || !b {
		t.Errorf("Bool = %v, %v", b, err)
	}
	if _, err := (Arguments{"b": "true"}).Bool("b"); err == nil {
		t.Error("Bool must not coerce a string")
	}
}

func TestArguments_Map(t *testing.T) {
	args := Arguments{
		"a": map[string]interface{}{"x": 1.0},
		"b": map[interface{}]interface{}{"y": 2.0},
		"c": map[interface{}]interface{}{1: 2.0},
		"d": []interface{}{1.0},
	}
	if m, err := args.Map("a"); err != nil || m["x"] != 1.0 {
		t.Errorf("Map(a) = %v, %v", m, err)
	}
	if m, err := args.Map("b"); err != nil || m["y"] != 2.0 {
		t.Errorf("Map(b) = %v, %v", m, err)
	}
	if _, err := args.Map("c"); err == nil {
		t.Error("Map(c) must reject non-string keys")
	}
	if _, err := args.Map("d"); err == nil {
		t.Error("Map(d) must reject a list")
	}
}

func TestArgError_Message(t *testing.T) {
	missing := &ArgError{Key: "path", Expected: "string"}
	if missing.Error() != `argument "path" is required` {
		t.Errorf("unexpected message %q", missing.Error())
	}
	wrong := &ArgError{Key: "width", Expected: "number", Got: "string"}
	if wrong.Error() != `argument "width" must be a number, got string` {
		t.Errorf("unexpected message %q", wrong.Error())
	}
}
