// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kilnworks

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kilnworks/icebridge/pkg/pipeline"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// Messages
type tickMsg time.Time
type lineMsg struct {
	framed bool
}
type frameMsg struct {
	word uint16
}
type estimateMsg struct {
	value int16
	snap  pipeline.Snapshot
}
type connLostMsg struct {
	err error
}

// ledHold is how long the frame-ready and validity indicators stay lit
// after their pulse; both are single-cycle strobes on the wire.
const ledHold = 400 * time.Millisecond

// monitorModel is the Bubble Tea model for the live dashboard
type monitorModel struct {
	connInfo string
	pl       *pipeline.Pipeline

	snap         pipeline.Snapshot
	selectLevel  bool
	lastFrameAt  time.Time
	lastPulseAt  time.Time
	lastFrame    uint16
	lastEstimate int16

	eventLog      []eventLogEntry
	maxLogEntries int

	spin     spinner.Model
	width    int
	height   int
	quitting bool
	connLost bool
	connErr  error
}

func initialMonitorModel(connInfo string, pl *pipeline.Pipeline) monitorModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return monitorModel{
		connInfo:      connInfo,
		pl:            pl,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		spin:          sp,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		m.spin.Tick,
		tea.EnterAltScreen,
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tickMsg:
		m.snap = m.pl.Stats().Snapshot()
		return m, monitorTickCmd()

	case lineMsg:
		m.selectLevel = msg.framed
		if monitorShowAll {
			if msg.framed {
				m.addLogEntry("select asserted", false)
			} else {
				m.addLogEntry("select deasserted", false)
			}
		}

	case frameMsg:
		m.lastFrameAt = time.Now()
		m.lastFrame = msg.word
		if monitorShowAll {
			m.addLogEntry(fmt.Sprintf("frame 0x%04X", msg.word), false)
		}

	case estimateMsg:
		m.lastPulseAt = time.Now()
		m.lastEstimate = msg.value
		m.snap = msg.snap
		m.addLogEntry(fmt.Sprintf("estimate %d (frame 0x%04X)", msg.value, m.lastFrame), false)

	case connLostMsg:
		m.connLost = true
		m.connErr = msg.err
		m.addLogEntry(fmt.Sprintf("CONNECTION LOST: %v", msg.err), true)
	}

	return m, nil
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// led renders an indicator dot, lit or dark.
func led(lit bool, label string, litStyle, darkStyle lipgloss.Style) string {
	if lit {
		return litStyle.Render("● " + label)
	}
	return darkStyle.Render("○ " + label)
}

func (m monitorModel) View() string {
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

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	dimStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("ICEBRIDGE - LIVE MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Strategy: %s | Press 'q' to quit", m.connInfo, strategy)))
	s.WriteString("\n\n")

	if m.connLost {
		s.WriteString(errorStyle.Render("✗ Connection lost"))
		s.WriteString("\n\n")
	} else if m.snap.FramesReceived == 0 {
		s.WriteString(m.spin.View())
		s.WriteString(headerStyle.Render(" Waiting for frames..."))
		s.WriteString("\n\n")
	}

	// Line indicators
	now := time.Now()
	indicators := strings.Join([]string{
		led(m.selectLevel, "SELECT", valueStyle, dimStyle),
		led(now.Sub(m.lastFrameAt) < ledHold && !m.lastFrameAt.IsZero(), "FRAME", valueStyle, dimStyle),
		led(now.Sub(m.lastPulseAt) < ledHold && !m.lastPulseAt.IsZero(), "VALID", valueStyle, dimStyle),
	}, "   ")
	s.WriteString(boxStyle.Render(indicators))
	s.WriteString("\n\n")

	// Statistics
	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Samples:"), valueStyle.Render(fmt.Sprintf("%d", m.snap.Samples)),
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d (%.1f/s)", m.snap.FramesReceived, m.snap.FrameRate)),
		labelStyle.Render("Discards:"), func() string {
			if m.snap.PartialDiscards > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", m.snap.PartialDiscards))
			}
			return valueStyle.Render("0")
		}(),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Updates:"), valueStyle.Render(fmt.Sprintf("%d (%.1f/s)", m.snap.Updates, m.snap.UpdateRate)),
		labelStyle.Render("Held:"), valueStyle.Render(fmt.Sprintf("%d", m.snap.Holds)),
		labelStyle.Render("Saturated:"), valueStyle.Render(fmt.Sprintf("%d", m.snap.Saturations)),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Last frame:"), valueStyle.Render(fmt.Sprintf("0x%04X (%d)", m.snap.LastFrame, int16(m.snap.LastFrame))),
		labelStyle.Render("Estimate:"), valueStyle.Render(fmt.Sprintf("%d", m.snap.LastEstimate)),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 16
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
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					valueStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
