package server

import (
	"errors"
	"strconv"
	"strings"
)

var errInvalidBool = errors.New("invalid_bool")

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, errInvalidBool
	}
	return &parsed, nil
}
