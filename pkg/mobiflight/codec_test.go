// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Thermoquad/mfstat/pkg/mobiflight/wire"
)

// ============================================================
// Serialize Tests
// ============================================================

func TestSerialize_NoFields(t *testing.T) {
	got := NewCommandMessage(CommandGetInfo).Serialize()
	if got != "9" {
		t.Errorf("Serialize() = %q, want %q", got, "9")
	}
}

func TestSerialize_Escaping(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		want   string
	}{
		{"plain", []string{"abc", "def"}, "7,abc,def"},
		{"empty field", []string{""}, "7,"},
		{"two empty fields", []string{"", ""}, "7,,"},
		{"field separator", []string{"a,b"}, "7,a/,b"},
		{"command separator", []string{"a;b"}, "7,a/;b"},
		{"escape character", []string{"a/b"}, "7,a//b"},
		{"all specials", []string{"/,;"}, "7,///,/;"},
		{"unicode", []string{"Grüße/°"}, "7,Grüße//°"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCommandMessage(CommandButtonChange, tt.fields...).Serialize()
			if got != tt.want {
				t.Errorf("Serialize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerialize_UnknownType(t *testing.T) {
	msg, err := NewRawCommandMessage(200, "x")
	if err != nil {
		t.Fatalf("NewRawCommandMessage: %v", err)
	}
	if got := msg.Serialize(); got != "200,x" {
		t.Errorf("Serialize() = %q, want %q", got, "200,x")
	}
	if _, ok := msg.Type(); ok {
		t.Error("expected unknown type")
	}
}

func TestNewRawCommandMessage_OutOfRange(t *testing.T) {
	for _, id := range []int{-1, 256} {
		if _, err := NewRawCommandMessage(id); err == nil {
			t.Errorf("expected error for type id %d", id)
		}
	}
}

// ============================================================
// Deserialize Tests
// ============================================================

func TestDeserialize_Fields(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		typeID uint8
		fields []string
	}{
		{"type only", "5", 5, []string{}},
		{"single empty field", "5,", 5, []string{""}},
		{"escaped field separator", "5,a/,b,c", 5, []string{"a,b", "c"}},
		{"escaped command separator", "5,a/;b", 5, []string{"a;b"}},
		{"escaped escape", "5,a//,b", 5, []string{"a/", "b"}},
		{"escaped ordinary character", "5,/a", 5, []string{"a"}},
		{"unknown type", "99,x,y", 99, []string{"x", "y"}},
		{"leading zeros", "007,x", 7, []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Deserialize(tt.raw)
			if err != nil {
				t.Fatalf("Deserialize(%q) error: %v", tt.raw, err)
			}
			if msg.TypeID() != tt.typeID {
				t.Errorf("TypeID() = %d, want %d", msg.TypeID(), tt.typeID)
			}
			if !reflect.DeepEqual(msg.Fields(), tt.fields) {
				t.Errorf("Fields() = %q, want %q", msg.Fields(), tt.fields)
			}
		})
	}
}

func TestDeserialize_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"empty type", ",abc"},
		{"non-numeric type", "abc,1"},
		{"negative type", "-1"},
		{"type out of range", "256"},
		{"dangling escape", "5,abc/"},
		{"three trailing escapes", "5,abc///"},
		{"escape only", "/"},
		{"encoder bad event", "6,MyEncoder,4"},
		{"encoder missing field", "6,MyEncoder"},
		{"info without fields", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.raw)
			if err == nil {
				t.Fatalf("Deserialize(%q) expected error", tt.raw)
			}
			var formatErr *wire.FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("expected *wire.FormatError, got %T", err)
			}
			if formatErr.Raw != tt.raw {
				t.Errorf("FormatError.Raw = %q, want %q", formatErr.Raw, tt.raw)
			}
		})
	}
}

func TestDeserialize_EvenTrailingEscapes(t *testing.T) {
	msg, err := Deserialize("5,abc//")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := msg.Fields(); len(got) != 1 || got[0] != "abc/" {
		t.Errorf("Fields() = %q", got)
	}
}

func TestDeserialize_GenericForUnhandledType(t *testing.T) {
	msg, err := Deserialize("7,Button,0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := msg.(*CommandMessage); !ok {
		t.Fatalf("expected *CommandMessage, got %T", msg)
	}
	if tp, ok := msg.Type(); !ok || tp != CommandButtonChange {
		t.Errorf("Type() = %v, %v", tp, ok)
	}
}

// ============================================================
// Round Trip Tests
// ============================================================

func TestRoundTrip_SpecialCharacters(t *testing.T) {
	fields := []string{"/,;", ";", ",", "/", "", "a/b,c;d", "//,,;;"}
	msg, err := NewRawCommandMessage(200, fields...)
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := Deserialize(msg.Serialize())
	if err != nil {
		t.Fatalf("Deserialize error: %v", err)
	}
	if !reflect.DeepEqual(decoded.Fields(), fields) {
		t.Errorf("round trip fields = %q, want %q", decoded.Fields(), fields)
	}
}

func TestRoundTrip_NeverSplitsEscapedSeparator(t *testing.T) {
	raw := NewCommandMessage(CommandStatus, strings.Repeat(",", 10)).Serialize()
	decoded, err := Deserialize(raw)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(decoded.Fields()); n != 1 {
		t.Errorf("expected 1 field, got %d", n)
	}
}

func FuzzDeserialize(f *testing.F) {
	f.Add("6,MyEncoder,2")
	f.Add("10,MobiFlight Mega,MyBoard,SN-123,2.5.1,1.0.0")
	f.Add("10,8.3.4.1.MyEncoder:3.5.MyOutput:")
	f.Add("30,Mux,3,1")
	f.Add("5,a/,b//;")
	f.Add("/")

	f.Fuzz(func(t *testing.T, raw string) {
		msg, err := Deserialize(raw)
		if err != nil {
			var formatErr *wire.FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("expected *wire.FormatError, got %T: %v", err, err)
			}
			return
		}

		again, err := Deserialize(msg.Serialize())
		if err != nil {
			t.Fatalf("re-decoding %q failed: %v", msg.Serialize(), err)
		}
		if again.TypeID() != msg.TypeID() || !reflect.DeepEqual(again.Fields(), msg.Fields()) {
			t.Fatalf("round trip mismatch: %v vs %v", msg, again)
		}
	})
}
