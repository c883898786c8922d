package model

import (
	"fmt"
	"strings"
)

// Position is the holding state of the engine for its single symbol.
type Position string

const (
	PositionFlat Position = "FLAT"
	PositionLong Position = "LONG"
)

func (p Position) IsLong() bool {
	return p == PositionLong
}

// ParsePosition accepts the persisted representation. Older rows stored an
// empty value (or NULL) for "no position", which maps to FLAT.
func ParsePosition(s string) (Position, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(PositionFlat), "NONE":
		return PositionFlat, nil
	case string(PositionLong):
		return PositionLong, nil
	default:
		return "", fmt.Errorf("unknown position %q", s)
	}
}
