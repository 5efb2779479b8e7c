// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/mfstat/pkg/mobiflight"
	"github.com/Thermoquad/mfstat/pkg/mobiflight/devices"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// inputActivity is the latest event seen from one input device
type inputActivity struct {
	timestamp time.Time
	kind      string
	event     string
	count     uint64
}

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	stats         *mobiflight.Statistics
	eventLog      []eventLogEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool

	// Board state learned from INFO replies
	identification *mobiflight.IdentificationInfoMessage
	configuration  *devices.InterfaceConfiguration
	inputs         map[string]*inputActivity

	// Set-pin input
	pinInput textinput.Model
	send     func(mobiflight.Message) error

	connectionLost bool
}

// Messages
type tickMsg time.Time
type linkDataMsg received
type linkClosedMsg struct {
	err error
}
type sentMsg struct {
	msg mobiflight.Message
	err error
}

func initialModel(connInfo string, statsInterval int, showAll bool, send func(mobiflight.Message) error) model {
	ti := textinput.New()
	ti.Placeholder = "13 on"
	ti.Prompt = "set_pin> "
	ti.CharLimit = 64
	ti.Width = 30

	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		stats:         mobiflight.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
		inputs:        make(map[string]*inputActivity),
		pinInput:      ti,
		send:          send,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// sendCmd writes messages in order off the UI goroutine
func (m model) sendCmd(msgs ...mobiflight.Message) tea.Cmd {
	send := m.send
	return func() tea.Msg {
		for _, msg := range msgs {
			if err := send(msg); err != nil {
				return sentMsg{msg: msg, err: err}
			}
		}
		return sentMsg{msg: msgs[len(msgs)-1]}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case linkDataMsg:
		m.handleReceived(received(msg))

	case linkClosedMsg:
		m.connectionLost = true
		m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)

	case sentMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Send failed: %v", msg.err), true)
		} else if msg.msg != nil {
			m.addLogEntry(fmt.Sprintf("Sent %s", msg.msg), false)
		}
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pinInput.Focused() {
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc":
			m.pinInput.Blur()
			m.pinInput.Reset()
			return m, nil
		case "enter":
			text := m.pinInput.Value()
			m.pinInput.Reset()
			m.pinInput.Blur()
			if m.connectionLost {
				m.addLogEntry("Not connected", true)
				return m, nil
			}
			setPin, err := parsePinCommand(text, m.configuration)
			if err != nil {
				m.addLogEntry(fmt.Sprintf("set_pin: %v", err), true)
				return m, nil
			}
			return m, m.sendCmd(setPin)
		}
		var cmd tea.Cmd
		m.pinInput, cmd = m.pinInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "s":
		return m, m.pinInput.Focus()
	case "i":
		if m.connectionLost {
			return m, nil
		}
		return m, m.sendCmd(mobiflight.NewGetInfoMessage(), mobiflight.NewGetConfigMessage())
	case "r":
		m.stats.Reset()
		m.addLogEntry("Statistics reset", false)
	}
	return m, nil
}

func (m *model) handleReceived(r received) {
	if r.err != nil {
		m.stats.Update(nil, r.err, nil)
		m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", r.err), true)
		return
	}

	anomalies := mobiflight.ValidateReceived(r.msg)
	m.stats.Update(r.msg, nil, anomalies)

	name := mobiflight.FormatCommandType(r.msg.TypeID())
	for _, a := range anomalies {
		m.addLogEntry(fmt.Sprintf("%s: %s", name, a.Message), true)
	}

	switch msg := r.msg.(type) {
	case *mobiflight.IdentificationInfoMessage:
		m.identification = msg
		m.addLogEntry(fmt.Sprintf("Board %s (%s) firmware %s", msg.Name(), msg.MobiflightType(), msg.Version()), false)

	case *mobiflight.ConfigurationInfoMessage:
		if cfg := msg.Configuration(); cfg != nil {
			m.configuration = cfg
			m.addLogEntry(fmt.Sprintf("Configuration: %d devices", cfg.Len()), false)
		}

	case *mobiflight.EncoderChangeMessage:
		m.recordInput(msg.Name(), "encoder", msg.Event().String())

	case *mobiflight.DigitalInputMultiplexerChangeMessage:
		m.recordInput(msg.Name(), "mux", fmt.Sprintf("ch %d %s", msg.Channel(), msg.Event()))
	}

	if m.showAll && len(anomalies) == 0 {
		m.addLogEntry(fmt.Sprintf("%s %q", name, r.raw), false)
	}
}

func (m *model) recordInput(name, kind, event string) {
	a, ok := m.inputs[name]
	if !ok {
		a = &inputActivity{kind: kind}
		m.inputs[name] = a
	}
	a.timestamp = time.Now()
	a.event = event
	a.count++
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// parsePinCommand turns "<pin|output name> <on|off|fraction|value N>" into a
// SetPinMessage. Output names are resolved against cfg when it is known.
func parsePinCommand(text string, cfg *devices.InterfaceConfiguration) (*mobiflight.SetPinMessage, error) {
	parts := strings.Fields(text)
	if len(parts) < 2 || len(parts) > 3 {
		return nil, errors.New(`expected "<pin> <on|off|0.0-1.0|value N>"`)
	}

	var target mobiflight.SetPinOption
	if pin, err := strconv.Atoi(parts[0]); err == nil {
		target = mobiflight.WithPin(pin)
	} else {
		if cfg == nil {
			return nil, fmt.Errorf("unknown pin %q (press 'i' to load the board configuration)", parts[0])
		}
		dev, ok := cfg.FindByName(parts[0])
		if !ok {
			return nil, fmt.Errorf("no device named %q", parts[0])
		}
		target = mobiflight.WithDevice(dev)
	}

	var state mobiflight.SetPinOption
	switch strings.ToLower(parts[1]) {
	case "on":
		state = mobiflight.Enable()
	case "off":
		state = mobiflight.Disable()
	case "value":
		if len(parts) != 3 {
			return nil, errors.New("value needs a number")
		}
		v, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("bad value %q", parts[2])
		}
		state = mobiflight.WithDutyCycleValue(v)
	default:
		f, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad state %q", parts[1])
		}
		state = mobiflight.WithDutyCycleFraction(f)
	}
	if len(parts) == 3 && strings.ToLower(parts[1]) != "value" {
		return nil, fmt.Errorf("unexpected %q", parts[2])
	}

	return mobiflight.NewSetPinMessage(target, state)
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("MFSTAT - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | 'i' info, 's' set pin, 'r' reset, 'q' quit",
		m.connInfo, func() string {
			if m.showAll {
				return "All messages"
			}
			return "Errors only"
		}())))
	s.WriteString("\n\n")

	// Board status
	switch {
	case m.connectionLost:
		s.WriteString(errorStyle.Render("✗ Connection lost"))
	case m.identification == nil:
		s.WriteString(warningStyle.Render("⏳ Waiting for board identification..."))
	default:
		id := m.identification
		s.WriteString(statsValueStyle.Render(fmt.Sprintf("✓ %s", id.Name())))
		s.WriteString(headerStyle.Render(fmt.Sprintf(" %s, serial %s, firmware %s (core %s)",
			id.MobiflightType(), id.Serial(), id.Version(), id.CoreVersion())))
		if !isTestedVersion(id.Version()) {
			s.WriteString(" ")
			s.WriteString(warningStyle.Render("untested firmware"))
		}
	}
	s.WriteString("\n\n")

	// Statistics
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	totalErrors := m.stats.FormatErrors + m.stats.Anomalies
	if m.stats.TotalMessages > 0 {
		validPercent = float64(m.stats.ValidMessages) * 100.0 / float64(m.stats.TotalMessages)
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.TotalMessages)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalMessages)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidMessages, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", totalErrors, errorPercent)),
	))

	if m.stats.FormatErrors > 0 || m.stats.UnknownTypes > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Format Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.FormatErrors)),
			statsLabelStyle.Render("Unknown Types:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.UnknownTypes)),
		))
	}

	if m.stats.Anomalies > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s (%s: %d, %s: %d, %s: %d)\n",
			statsLabelStyle.Render("Anomalies:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.Anomalies)),
			headerStyle.Render("unparsed config"), m.stats.UnparsedConfigs,
			headerStyle.Render("untested firmware"), m.stats.UntestedFirmware,
			headerStyle.Render("wrong direction"), m.stats.UnexpectedDirection,
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Message Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f msg/s", m.stats.MessageRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Input activity (only shown once inputs have moved)
	if len(m.inputs) > 0 {
		s.WriteString(statsLabelStyle.Render("Inputs:"))
		s.WriteString("\n")

		names := make([]string, 0, len(m.inputs))
		for name := range m.inputs {
			names = append(names, name)
		}
		sort.Strings(names)

		inputContent := strings.Builder{}
		for i, name := range names {
			a := m.inputs[name]
			if i > 0 {
				inputContent.WriteString("\n")
			}
			inputContent.WriteString(fmt.Sprintf("%s %s %s",
				statsLabelStyle.Render(settings.Label(name)+":"),
				statsValueStyle.Render(a.event),
				headerStyle.Render(fmt.Sprintf("(%s, %d events, %s)", a.kind, a.count, a.timestamp.Format("15:04:05"))),
			))
		}
		s.WriteString(boxStyle.Render(inputContent.String()))
		s.WriteString("\n\n")
	}

	if m.pinInput.Focused() {
		s.WriteString(m.pinInput.View())
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 15 - len(m.inputs)
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
