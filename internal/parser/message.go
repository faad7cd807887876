package parser

import "strings"

// Pair is one "Key: Value" line of a Sysmon message.
type Pair struct {
	Key   string
	Value string
}

// Decompose splits a free-text Sysmon message into key/value pairs.
//
// Each line is split at its first colon only, so values such as timestamps,
// paths and hash lists keep their own colons. Lines without a colon are
// dropped. Keys and values are trimmed. Line order is preserved.
func Decompose(message string) []Pair {
	if message == "" {
		return []Pair{}
	}
	lines := strings.Split(message, "\n")
	pairs := make([]Pair, 0, len(lines))
	for _, line := range lines {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		pairs = append(pairs, Pair{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
		})
	}
	return pairs
}

// Join renders pairs back into message form, one "Key: Value" per line.
func Join(pairs []Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.Key)
		b.WriteString(": ")
		b.WriteString(p.Value)
	}
	return b.String()
}
