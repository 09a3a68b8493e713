// Package glog contains lazy [slog.LogValuer] helpers,
// so that formatting work is only done when a record is actually emitted.
package glog

import (
	"encoding/hex"
	"log/slog"
	"strconv"
)

// Text returns a value that logs b as a quoted string.
// Candidates are arbitrary bytes, so quoting keeps log lines on one line.
func Text(b []byte) slog.LogValuer {
	return text(b)
}

type text []byte

func (t text) LogValue() slog.Value {
	return slog.StringValue(strconv.Quote(string(t)))
}

// Hex returns a value that logs b as lowercase hex.
func Hex(b []byte) slog.LogValuer {
	return hexBytes(b)
}

type hexBytes []byte

func (h hexBytes) LogValue() slog.Value {
	return slog.StringValue(hex.EncodeToString(h))
}
