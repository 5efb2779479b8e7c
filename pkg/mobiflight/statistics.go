// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mobiflight

import (
	"fmt"
	"sort"
	"time"
)

// Statistics tracks message counts and error rates. Not safe for concurrent use.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalMessages       uint64
	ValidMessages       uint64
	FormatErrors        uint64
	Anomalies           uint64
	UnknownTypes        uint64
	UnparsedConfigs     uint64
	UntestedFirmware    uint64
	UnexpectedDirection uint64
	ByType              map[string]uint64

	// Rates (calculated)
	MessageRate float64 // messages/sec
	ErrorRate   float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		ByType:         make(map[string]uint64),
	}
}

// Update updates statistics based on a decoded message, its decode error and
// the anomalies found by ValidateReceived.
func (s *Statistics) Update(m Message, decodeErr error, validationErrors []ValidationError) {
	s.TotalMessages++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		s.FormatErrors++
		return
	}

	s.ByType[FormatCommandType(m.TypeID())]++

	if len(validationErrors) == 0 {
		s.ValidMessages++
		return
	}

	for _, err := range validationErrors {
		s.Anomalies++
		switch err.Type {
		case AnomalyUnknownType:
			s.UnknownTypes++
		case AnomalyUnparsedConfiguration:
			s.UnparsedConfigs++
		case AnomalyUntestedFirmware:
			s.UntestedFirmware++
		case AnomalyUnexpectedDirection:
			s.UnexpectedDirection++
		}
	}
}

// CalculateRates calculates message and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.MessageRate = float64(s.TotalMessages) / elapsed
		s.ErrorRate = float64(s.FormatErrors+s.Anomalies) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, errorPercent float64
	if s.TotalMessages > 0 {
		validPercent = float64(s.ValidMessages) * 100.0 / float64(s.TotalMessages)
		errorPercent = float64(s.FormatErrors) * 100.0 / float64(s.TotalMessages)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Messages:  %8d\n", s.TotalMessages)
	result += fmt.Sprintf("Valid Messages:  %8d (%.1f%%)\n", s.ValidMessages, validPercent)

	if s.FormatErrors > 0 {
		result += fmt.Sprintf("Format Errors:   %8d (%.1f%%)\n", s.FormatErrors, errorPercent)
	}
	if s.Anomalies > 0 {
		result += fmt.Sprintf("Anomalies:       %8d\n", s.Anomalies)
		if s.UnknownTypes > 0 {
			result += fmt.Sprintf("  Unknown Types:    %5d\n", s.UnknownTypes)
		}
		if s.UnparsedConfigs > 0 {
			result += fmt.Sprintf("  Unparsed Config:  %5d\n", s.UnparsedConfigs)
		}
		if s.UntestedFirmware > 0 {
			result += fmt.Sprintf("  Untested FW:      %5d\n", s.UntestedFirmware)
		}
		if s.UnexpectedDirection > 0 {
			result += fmt.Sprintf("  Wrong Direction:  %5d\n", s.UnexpectedDirection)
		}
	}

	for _, name := range s.TypeNames() {
		result += fmt.Sprintf("  %-24s %6d\n", name, s.ByType[name])
	}

	result += fmt.Sprintf("Message Rate:    %8.1f msgs/sec\n", s.MessageRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// TypeNames returns the names of all seen message types, sorted
func (s *Statistics) TypeNames() []string {
	names := make([]string, 0, len(s.ByType))
	for name := range s.ByType {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
