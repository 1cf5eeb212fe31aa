package view

import "unicode/utf16"

// emerald shades, 500 600 700 800 300 200 400 100
var palette = []string{
	"#10B981",
	"#059669",
	"#047857",
	"#065F46",
	"#6EE7B7",
	"#A7F3D0",
	"#34D399",
	"#D1FAE5",
}

// GroupColor maps a group name onto the palette. The hash runs over UTF-16
// code units with 32 bit shifts so dashboards rendered in a browser pick the
// same colour for a group.
func GroupColor(group string) string {
	var hash int64
	for _, c := range utf16.Encode([]rune(group)) {
		hash = int64(c) + (int64(int32(hash)<<5) - hash)
	}
	if hash < 0 {
		hash = -hash
	}
	return palette[hash%int64(len(palette))]
}
