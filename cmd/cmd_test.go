// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/mfstat/internal/capture"
	"github.com/Thermoquad/mfstat/internal/config"
	"github.com/Thermoquad/mfstat/internal/logging"
	"github.com/Thermoquad/mfstat/internal/transport"
	"github.com/Thermoquad/mfstat/pkg/mobiflight"
	"github.com/Thermoquad/mfstat/pkg/mobiflight/devices"
)

const (
	identificationRaw = "10,MobiFlight Mega,Board,SN-1,2.5.1,1.0"
	configurationRaw  = "10,8.3.4.1.Enc:3.7.Led:"
)

func TestMain(m *testing.M) {
	logging.ConfigureTests()
	os.Exit(m.Run())
}

func mustDecode(t *testing.T, raw string) mobiflight.Message {
	t.Helper()
	m, err := mobiflight.Deserialize(raw)
	require.NoError(t, err)
	return m
}

func testBoard(t *testing.T) *boardInfo {
	t.Helper()
	b := &boardInfo{}
	b.absorb(mustDecode(t, identificationRaw))
	b.absorb(mustDecode(t, "7,Btn"))
	assert.False(t, b.complete())
	b.absorb(mustDecode(t, configurationRaw))
	require.True(t, b.complete())
	return b
}

// ============================================================
// decode
// ============================================================

func TestDecodeStream(t *testing.T) {
	var out bytes.Buffer
	err := decodeStream(strings.NewReader("6,Enc,2;\r\n"+identificationRaw+";\r\n"), &out, true)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "ENCODER_CHANGE (6) fields=2")
	assert.Contains(t, text, `Encoder: "Enc"`)
	assert.Contains(t, text, "Version: 2.5.1 (core 1.0)")
	assert.NotContains(t, text, "Anomaly")
}

func TestDecodeStream_ReportsFailures(t *testing.T) {
	var out bytes.Buffer
	err := decodeStream(strings.NewReader("x,1;6,Enc,2;2,13,255;"), &out, true)
	require.ErrorIs(t, err, errDecodeFailed)
	assert.Contains(t, err.Error(), "1 of 3")

	text := out.String()
	assert.Contains(t, text, "[ERROR]")
	// SET_PIN is host-to-board only
	assert.Contains(t, text, "Anomaly: UNEXPECTED_DIRECTION")
}

func TestDecodeStream_ContinuesPastEmptyAndOversized(t *testing.T) {
	var out bytes.Buffer
	input := ";;6,Enc,2;;" + strings.Repeat("x", transport.MaxMessageSize+1) + ";7,Btn;"
	err := decodeStream(strings.NewReader(input), &out, false)
	require.ErrorIs(t, err, errDecodeFailed)

	text := out.String()
	assert.Contains(t, text, "ENCODER_CHANGE (6)")
	assert.Contains(t, text, "[ERROR] message exceeds")
	assert.Contains(t, text, "BUTTON_CHANGE (7)")
}

func TestTerminate(t *testing.T) {
	assert.Equal(t, []string{"6,Enc,2;", "6,Enc,2;;", "7,a/;;"}, terminate([]string{"6,Enc,2", "6,Enc,2;", "7,a/;"}))

	var out bytes.Buffer
	require.NoError(t, decodeStream(strings.NewReader(strings.Join(terminate([]string{"7,a/;", "6,Enc,2;"}), "")), &out, false))
	assert.Contains(t, out.String(), "BUTTON_CHANGE (7) fields=1")
	assert.Contains(t, out.String(), `Field 0: "a;"`)
	assert.Contains(t, out.String(), "ENCODER_CHANGE (6)")
}

// ============================================================
// set_pin
// ============================================================

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestSetPinRequest_Build(t *testing.T) {
	board := testBoard(t)

	tests := []struct {
		name  string
		req   setPinRequest
		board *boardInfo
		want  string
	}{
		{"pin on", setPinRequest{pin: intPtr(13), on: true}, nil, "2,13,255"},
		{"pin off", setPinRequest{pin: intPtr(13), off: true}, nil, "2,13,0"},
		{"pin duty", setPinRequest{pin: intPtr(5), duty: floatPtr(0.5)}, nil, "2,5,128"},
		{"pin value", setPinRequest{pin: intPtr(5), value: intPtr(200)}, nil, "2,5,200"},
		{"device", setPinRequest{device: "Led", on: true}, board, "2,7,255"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.req.build(tt.board)
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Serialize())
		})
	}
}

func TestSetPinRequest_BuildErrors(t *testing.T) {
	board := testBoard(t)

	tests := []struct {
		name  string
		req   setPinRequest
		board *boardInfo
	}{
		{"no state", setPinRequest{pin: intPtr(1)}, nil},
		{"two states", setPinRequest{pin: intPtr(1), on: true, off: true}, nil},
		{"pin out of range", setPinRequest{pin: intPtr(256), on: true}, nil},
		{"device without board", setPinRequest{device: "Led", on: true}, nil},
		{"unknown device", setPinRequest{device: "Nope", on: true}, board},
		{"not an output", setPinRequest{device: "Enc", on: true}, board},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.build(tt.board)
			assert.Error(t, err)
		})
	}
}

// ============================================================
// info
// ============================================================

func TestDescribeBoard(t *testing.T) {
	cfg, err := config.Parse("[[bindings]]\ndevice = \"Led\"\nlabel = \"Gear down\"\n")
	require.NoError(t, err)

	d := describeBoard(testBoard(t), "Serial: /dev/ttyACM0 @ 115200 baud", cfg)
	assert.Equal(t, "MobiFlight Mega", d.Type)
	assert.Equal(t, "Board", d.Name)
	assert.True(t, d.Tested)
	require.Len(t, d.Devices, 2)
	assert.Equal(t, "Enc", d.Devices[0].Name)
	assert.Equal(t, devices.DeviceEncoder.String(), d.Devices[0].Type)
	assert.Equal(t, uint8(8), d.Devices[0].Code)
	assert.Equal(t, "Gear down", d.Devices[1].Label)
	assert.Empty(t, d.Devices[0].Label)

	var yamlOut bytes.Buffer
	require.NoError(t, writeBoardYAML(&yamlOut, d))
	var back boardDescriptor
	require.NoError(t, yaml.Unmarshal(yamlOut.Bytes(), &back))
	assert.Equal(t, d, back)

	var textOut bytes.Buffer
	writeBoardText(&textOut, d)
	assert.Contains(t, textOut.String(), "Firmware:     2.5.1 (core 1.0, tested)")
	assert.Contains(t, textOut.String(), "[Gear down]")
}

func TestDescribeBoard_UnparseableConfiguration(t *testing.T) {
	b := &boardInfo{}
	b.absorb(mustDecode(t, "10,MobiFlight Mega,Board,SN-1,9.9.9,1.0"))
	b.absorb(mustDecode(t, "10,3.5.A::1.2.Button"))

	d := describeBoard(b, "", config.Default())
	assert.False(t, d.Tested)
	assert.NotEmpty(t, d.ConfigError)
	assert.Equal(t, "3.5.A::1.2.Button", d.RawConfig)
	assert.Empty(t, d.Devices)

	var textOut bytes.Buffer
	writeBoardText(&textOut, d)
	assert.Contains(t, textOut.String(), "UNTESTED")
	assert.Contains(t, textOut.String(), "could not be parsed")
}

// ============================================================
// replay
// ============================================================

func TestPrintReplayFrame(t *testing.T) {
	var out bytes.Buffer
	stats := mobiflight.NewStatistics()
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	sent := capture.Frame{Timestamp: ts, Direction: mobiflight.SentOnly, Raw: "9"}
	msg, err := mobiflight.Deserialize(sent.Raw)
	require.NoError(t, err)
	printReplayFrame(&out, stats, sent, msg, nil)

	bad := capture.Frame{Timestamp: ts, Direction: mobiflight.ReceivedOnly, Raw: "x"}
	_, decodeErr := mobiflight.Deserialize(bad.Raw)
	printReplayFrame(&out, stats, bad, nil, decodeErr)

	text := out.String()
	assert.Contains(t, text, ">> [12:00:00.000] GET_INFO (9)")
	assert.Contains(t, text, "[12:00:00.000] [ERROR]")
	assert.Equal(t, uint64(1), stats.TotalMessages)
	assert.Equal(t, uint64(1), stats.FormatErrors)
}

// ============================================================
// monitor
// ============================================================

func TestParsePinCommand(t *testing.T) {
	cfg := testBoard(t).configuration.Configuration()

	tests := []struct {
		text string
		cfg  *devices.InterfaceConfiguration
		want string
	}{
		{"13 on", nil, "2,13,255"},
		{"13 OFF", nil, "2,13,0"},
		{"5 0.5", nil, "2,5,128"},
		{"5 value 17", nil, "2,5,17"},
		{"Led on", cfg, "2,7,255"},
	}
	for _, tt := range tests {
		msg, err := parsePinCommand(tt.text, tt.cfg)
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.want, msg.Serialize(), tt.text)
	}

	for _, text := range []string{"", "13", "13 maybe", "13 on now", "5 value", "5 value x", "Led on", "300 on"} {
		_, err := parsePinCommand(text, nil)
		assert.Error(t, err, text)
	}
	_, err := parsePinCommand("Enc on", cfg)
	assert.Error(t, err)
}

func TestModel_HandlesLinkTraffic(t *testing.T) {
	var sent []mobiflight.Message
	m := initialModel("test", 10, false, func(msg mobiflight.Message) error {
		sent = append(sent, msg)
		return nil
	})

	for _, raw := range []string{identificationRaw, configurationRaw, "6,Enc,0", "6,Enc,3"} {
		next, _ := m.Update(linkDataMsg(received{at: time.Now(), raw: raw, msg: mustDecode(t, raw)}))
		m = next.(model)
	}
	_, decodeErr := mobiflight.Deserialize("x")
	next, _ := m.Update(linkDataMsg(received{at: time.Now(), raw: "x", err: decodeErr}))
	m = next.(model)

	require.NotNil(t, m.identification)
	require.NotNil(t, m.configuration)
	assert.Equal(t, 2, m.configuration.Len())
	require.Contains(t, m.inputs, "Enc")
	assert.Equal(t, uint64(2), m.inputs["Enc"].count)
	assert.Equal(t, mobiflight.EncoderRightFast.String(), m.inputs["Enc"].event)
	assert.Equal(t, uint64(5), m.stats.TotalMessages)
	assert.Equal(t, uint64(1), m.stats.FormatErrors)
	assert.Contains(t, m.View(), "Board")

	// Type a set-pin command and submit it
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	m = next.(model)
	require.True(t, m.pinInput.Focused())
	m.pinInput.SetValue("Led on")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	require.NotNil(t, cmd)
	assert.False(t, m.pinInput.Focused())

	result := cmd()
	next, _ = m.Update(result)
	m = next.(model)
	require.Len(t, sent, 1)
	assert.Equal(t, "2,7,255", sent[0].Serialize())
	assert.Contains(t, m.eventLog[len(m.eventLog)-1].message, "Sent")
}

func TestModel_SendFailureAndConnectionLoss(t *testing.T) {
	m := initialModel("test", 10, true, func(mobiflight.Message) error {
		return errors.New("broken pipe")
	})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	m = next.(model)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	m = next.(model)
	assert.True(t, m.eventLog[len(m.eventLog)-1].isError)

	next, _ = m.Update(linkClosedMsg{err: errors.New("eof")})
	m = next.(model)
	assert.True(t, m.connectionLost)
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), "Connection lost")
}

// ============================================================
// discovery / ping
// ============================================================

func TestAwaitIdentification(t *testing.T) {
	msgs := make(chan received, 4)
	errc := make(chan error, 1)

	_, decodeErr := mobiflight.Deserialize("x")
	msgs <- received{raw: "x", err: decodeErr}
	msgs <- received{raw: configurationRaw, msg: mustDecode(t, configurationRaw)}
	msgs <- received{raw: identificationRaw, msg: mustDecode(t, identificationRaw)}

	id, err := awaitIdentification(context.Background(), msgs, errc, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "SN-1", id.Serial())

	_, err = awaitIdentification(context.Background(), msgs, errc, 10*time.Millisecond)
	assert.ErrorIs(t, err, errNoIdentification)

	errc <- io.EOF
	_, err = awaitIdentification(context.Background(), msgs, errc, time.Second)
	assert.ErrorIs(t, err, io.EOF)
}

// ============================================================
// settings
// ============================================================

func TestLoadSettings_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mfstat.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = \"/dev/ttyACM0\"\nbaud = 57600\ntested_versions_only = true\n"), 0o600))

	t.Cleanup(func() {
		configPath, portName, baudRate = "", "", config.DefaultBaudRate
		settings = config.Default()
	})

	require.NoError(t, rootCmd.ParseFlags([]string{"--config", path, "--port", "/dev/ttyUSB1"}))
	t.Cleanup(func() {
		rootCmd.PersistentFlags().Lookup("config").Changed = false
		rootCmd.PersistentFlags().Lookup("port").Changed = false
	})

	require.NoError(t, loadSettings(rootCmd, nil))
	assert.Equal(t, "/dev/ttyUSB1", settings.Port)
	assert.Equal(t, 57600, settings.BaudRate)
	assert.True(t, settings.TestedVersionsOnly)
	assert.Equal(t, path, settings.Path)
}
