package battlelog

import (
	"regexp"
	"strings"
)

// Protocol message kinds used when deriving opponent state.
const (
	KindSwitch = "switch"
	KindDrag   = "drag"
	KindMove   = "move"
	KindInit   = "init"
)

// RequestMarker precedes the player's request JSON in a chunk.
const RequestMarker = "|request|"

// Line is a decoded protocol line: |kind|actor|detail|...
type Line struct {
	Kind   string
	Actor  string
	Detail string
	Args   []string // remaining fields after detail
}

// ParseLine decodes a pipe-delimited line. Lines with fewer than four
// fields (including the leading empty one) are rejected.
func ParseLine(raw string) (Line, bool) {
	parts := strings.Split(raw, "|")
	if len(parts) < 4 {
		return Line{}, false
	}
	l := Line{
		Kind:   strings.TrimSpace(parts[1]),
		Actor:  strings.TrimSpace(parts[2]),
		Detail: strings.TrimSpace(parts[3]),
	}
	if len(parts) > 4 {
		l.Args = parts[4:]
	}
	return l, true
}

// ExtractRequest returns the text following the first request marker in
// chunk, trimmed. ok is false when the marker is absent.
func ExtractRequest(chunk string) (payload string, ok bool) {
	idx := strings.Index(chunk, RequestMarker)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(chunk[idx+len(RequestMarker):]), true
}

// RoomOf returns the room id announced by a chunk's ">room" header line,
// or "" for global messages.
func RoomOf(chunk string) string {
	if !strings.HasPrefix(chunk, ">") {
		return ""
	}
	line, _, _ := strings.Cut(chunk[1:], "\n")
	return strings.TrimSpace(line)
}

// IsRoomEnd reports whether chunk contains the |deinit line sent when the
// client leaves a room.
func IsRoomEnd(chunk string) bool {
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		if line == "|deinit" || strings.HasPrefix(line, "|deinit|") {
			return true
		}
	}
	return false
}

// IsBattleStart reports whether chunk contains the |init|battle line.
func IsBattleStart(chunk string) bool {
	for _, line := range strings.Split(chunk, "\n") {
		if strings.TrimSpace(line) == "|init|battle" {
			return true
		}
	}
	return false
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// SpeciesID normalises a species or details string to a PokeAPI id:
// "Mr. Mime, M" -> "mr-mime".
func SpeciesID(name string) string {
	part, _, _ := strings.Cut(name, ",")
	part = strings.TrimSpace(part)
	if part == "" {
		return ""
	}
	part = whitespaceRun.ReplaceAllString(part, "-")
	part = strings.ReplaceAll(part, ".", "")
	part = strings.ReplaceAll(part, "'", "")
	return strings.ToLower(part)
}

// SpeciesName returns the species part of a details string ("Noivern, M" -> "Noivern").
func SpeciesName(details string) string {
	name, _, _ := strings.Cut(details, ",")
	return strings.TrimSpace(name)
}
