// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func mustDeserialize(t *testing.T, raw string) Message {
	t.Helper()
	msg, err := Deserialize(raw)
	if err != nil {
		t.Fatalf("Deserialize(%q): %v", raw, err)
	}
	return msg
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatMessage_Header(t *testing.T) {
	ts := time.Date(2025, 1, 2, 13, 14, 15, 16_000_000, time.UTC)
	got := FormatMessage(ts, mustDeserialize(t, "6,Heading,3"))

	if !strings.HasPrefix(got, "[13:14:15.016] ENCODER_CHANGE (6) fields=2\n") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, `Encoder: "Heading", Event: RIGHT_FAST (clockwise, fast)`) {
		t.Errorf("unexpected payload: %q", got)
	}
}

func TestFormatPayload(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"30,Mux,4,0", `Multiplexer: "Mux", Channel: 4, Event: PRESS`},
		{"10,MobiFlight Mega,Cockpit,SN-1,2.5.1,1.0.0", "Version: 2.5.1 (core 1.0.0)"},
		{"10,3.5.Led:", `pin=5`},
		{"10,3.5.Led::", "unparseable"},
		{"5", "(no payload)"},
		{"200,a,b", `Field 1: "b"`},
	}

	for _, tt := range tests {
		got := FormatPayload(mustDeserialize(t, tt.raw))
		if !strings.Contains(got, tt.want) {
			t.Errorf("FormatPayload(%q) = %q, want substring %q", tt.raw, got, tt.want)
		}
	}
}

func TestFormatPayload_SetPin(t *testing.T) {
	msg, err := NewSetPinMessage(WithPin(3), WithDutyCycleValue(17))
	if err != nil {
		t.Fatal(err)
	}
	if got := FormatPayload(msg); got != "  Pin: 3, State: 17 (PWM)\n" {
		t.Errorf("FormatPayload() = %q", got)
	}
}

// ============================================================
// Validator Tests
// ============================================================

func TestValidateReceived(t *testing.T) {
	tests := []struct {
		raw  string
		want []AnomalyType
	}{
		{"6,Enc,1", nil},
		{"6,,1", []AnomalyType{AnomalyEmptyName}},
		{"30,,1,1", []AnomalyType{AnomalyEmptyName}},
		{"200", []AnomalyType{AnomalyUnknownType}},
		{"2,13,255", []AnomalyType{AnomalyUnexpectedDirection}},
		{"9", []AnomalyType{AnomalyUnexpectedDirection}},
		{"10,3.5.Led::", []AnomalyType{AnomalyUnparsedConfiguration}},
		{"10,MobiFlight Mega,Cockpit,SN-1,2.5.1,1.0.0", nil},
		{"10,MobiFlight Mega,Cockpit,SN-1,2.6.0,1.0.0", []AnomalyType{AnomalyUntestedFirmware}},
	}

	for _, tt := range tests {
		got := ValidateReceived(mustDeserialize(t, tt.raw))
		if len(got) != len(tt.want) {
			t.Errorf("ValidateReceived(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for i := range got {
			if got[i].Type != tt.want[i] {
				t.Errorf("ValidateReceived(%q)[%d] = %s, want %s", tt.raw, i, got[i].Type, tt.want[i])
			}
		}
	}
}

func TestValidateReceived_SentOnly(t *testing.T) {
	got := ValidateReceived(NewGetInfoMessage())
	if len(got) != 1 || got[0].Type != AnomalyUnexpectedDirection {
		t.Errorf("ValidateReceived(GET_INFO) = %v", got)
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()

	s.Update(mustDeserialize(t, "6,Enc,1"), nil, nil)
	s.Update(mustDeserialize(t, "6,Enc,2"), nil, nil)
	unknown := mustDeserialize(t, "200")
	s.Update(unknown, nil, ValidateReceived(unknown))
	s.Update(nil, errors.New("open escape"), nil)

	if s.TotalMessages != 4 {
		t.Errorf("TotalMessages = %d, want 4", s.TotalMessages)
	}
	if s.ValidMessages != 2 {
		t.Errorf("ValidMessages = %d, want 2", s.ValidMessages)
	}
	if s.FormatErrors != 1 {
		t.Errorf("FormatErrors = %d, want 1", s.FormatErrors)
	}
	if s.UnknownTypes != 1 || s.Anomalies != 1 {
		t.Errorf("UnknownTypes = %d, Anomalies = %d", s.UnknownTypes, s.Anomalies)
	}
	if s.ByType["ENCODER_CHANGE"] != 2 || s.ByType["UNKNOWN"] != 1 {
		t.Errorf("ByType = %v", s.ByType)
	}

	out := s.String()
	for _, want := range []string{"Total Messages:         4", "Format Errors:", "ENCODER_CHANGE"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}

	s.Reset()
	if s.TotalMessages != 0 || len(s.ByType) != 0 {
		t.Errorf("Reset did not clear counters")
	}
}
