package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// NullFloat is a scraped numeric cell. Cells that did not parse as a
// number are kept as null rather than dropped so the row survives.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns a valid NullFloat.
func Float(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// ParseNullFloat coerces scraped text to a number, "" and "-" become null.
func ParseNullFloat(text string) NullFloat {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return Float(v)
}

// OrZero returns the value or 0 when null.
func (n NullFloat) OrZero() float64 {
	if !n.Valid {
		return 0
	}
	return n.Float64
}

// MarshalJSON writes null for invalid values
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON accepts numbers, numeric strings and null
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = NullFloat{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNullFloat(s)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding number %s: %w", string(data), err)
	}
	*n = Float(v)
	return nil
}

// OffensiveRecord is one player row of a player play-type table.
type OffensiveRecord struct {
	Team     string    `json:"TEAM"`
	Player   string    `json:"PLAYER"`
	Points   NullFloat `json:"PTS"`
	PlayType string    `json:"Play_Type"`
}

// DefensiveRecord is one team row of a defensive play-type table.
// Rank is the 1-based position on the PPP-ascending page.
type DefensiveRecord struct {
	Rank     int       `json:"RANK"`
	Team     string    `json:"TEAM"`
	PPP      NullFloat `json:"PPP"`
	PlayType string    `json:"Play_Type"`
}

// PlayTypeTable is the scraped table for one play type.
type PlayTypeTable[T any] struct {
	PlayType string
	Rows     []T
}

// CacheInfo describes when and how a snapshot was produced.
type CacheInfo struct {
	Timestamp        float64 `json:"timestamp"`
	OffensiveTypes   int     `json:"offensive_types"`
	DefensiveTypes   int     `json:"defensive_types"`
	TotalTimeSeconds float64 `json:"total_time_seconds"`
}

// Time returns the scrape time.
func (ci CacheInfo) Time() time.Time {
	sec, frac := math.Modf(ci.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Snapshot is a complete scrape: every table in scrape order plus its info.
type Snapshot struct {
	Offensive []PlayTypeTable[OffensiveRecord]
	Defensive []PlayTypeTable[DefensiveRecord]
	Info      CacheInfo
}

// Empty reports whether the snapshot has no tables at all.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Offensive) == 0 && len(s.Defensive) == 0)
}
