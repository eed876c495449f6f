package logger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// messager is implemented by zerr errors, which can report their own message without the chain.
type messager interface {
	Message() string
}

// metadataer is implemented by zerr errors carrying key/value metadata.
type metadataer interface {
	Metadata() map[string]any
}

// errorEntry is one link of an error chain.
type errorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries walks the chain until it reaches an error that is not a zerr error.
// zerr links with an empty message only carry metadata; it is folded into the nearest entry.
func collectErrorEntries(err error) []errorEntry {
	var entries []errorEntry
	var pending map[string]any

	attach := func(e *errorEntry) {
		if len(pending) == 0 {
			return
		}
		if e.Metadata == nil {
			e.Metadata = map[string]any{}
		}
		maps.Copy(e.Metadata, pending)
		pending = nil
	}

	for current := err; current != nil; current = errors.Unwrap(current) {
		m, ok := current.(messager)
		if !ok {
			entry := errorEntry{Message: current.Error()}
			attach(&entry)
			entries = append(entries, entry)
			break
		}

		var meta map[string]any
		if md, ok := current.(metadataer); ok {
			meta = md.Metadata()
		}

		if m.Message() != "" {
			entry := errorEntry{Message: m.Message(), Metadata: meta}
			attach(&entry)
			entries = append(entries, entry)
			continue
		}
		if len(entries) > 0 {
			pending = meta
			attach(&entries[len(entries)-1])
			continue
		}
		if pending == nil {
			pending = map[string]any{}
		}
		maps.Copy(pending, meta)
	}
	return entries
}

// formatErrorEntries renders entries as:
//
//	Error: outer
//	       key: value
//
//	  Caused by:
//	    → inner
func formatErrorEntries(entries []errorEntry) string {
	var lines []string
	for i, entry := range entries {
		head, indent := "Error: ", "       "
		if i > 0 {
			head, indent = "    → ", "      "
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
		}

		msg := strings.Split(entry.Message, "\n")
		lines = append(lines, head+msg[0])
		for _, line := range msg[1:] {
			lines = append(lines, indent+line)
		}
		for _, key := range slices.Sorted(maps.Keys(entry.Metadata)) {
			lines = append(lines, fmt.Sprintf("%s%s: %v", indent, key, entry.Metadata[key]))
		}
	}
	return strings.Join(lines, "\n")
}
