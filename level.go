package cso

import (
	"strings"

	"github.com/pkg/errors"
)

// Level is a digital logic level. It goes over the wire as a small
// integer, 0 or 1.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

var ErrInvalidLevel = errors.New("invalid level")

func LevelFromBool(state bool) Level {
	if state {
		return High
	}
	return Low
}

func (l Level) Bool() bool {
	return l != Low
}

func (l Level) String() string {
	if l.Bool() {
		return "high"
	}
	return "low"
}

// ParseLevel converts a single message argument to a Level. Numbers are
// high when non-zero.
func ParseLevel(arg interface{}) (Level, error) {
	switch v := arg.(type) {
	case int32:
		return LevelFromBool(v != 0), nil
	case int64:
		return LevelFromBool(v != 0), nil
	case int:
		return LevelFromBool(v != 0), nil
	case float32:
		return LevelFromBool(v != 0), nil
	case float64:
		return LevelFromBool(v != 0), nil
	case bool:
		return LevelFromBool(v), nil
	case string:
		return parseLevelString(v)
	case []byte:
		return parseLevelString(string(v))
	}

	return Low, errors.Wrapf(ErrInvalidLevel, "unsupported argument type %T", arg)
}

func parseLevelString(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "high", "on", "true":
		return High, nil
	case "0", "low", "off", "false":
		return Low, nil
	}

	return Low, errors.Wrapf(ErrInvalidLevel, "unrecognized value %q", s)
}
