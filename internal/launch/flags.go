package launch

import (
	"regexp"
	"strconv"
)

// Flags is the intent flag bitmask carried by a launch line.
type Flags uint32

// Intent flags consulted by the qualifier. Values match the platform's
// Intent.FLAG_ACTIVITY_* constants.
const (
	FlagNewTask      Flags = 0x10000000
	FlagNoUserAction Flags = 0x00040000
)

var flagPattern = regexp.MustCompile(`\bfl(?:g|ags)=0x([0-9a-fA-F]+)\b`)

// ExtractFlags parses the first flg=0x.../flags=0x... token in line.
// A missing token and an unparseable one (e.g. wider than 32 bits) both
// report false.
func ExtractFlags(line string) (Flags, bool) {
	m := flagPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return 0, false
	}
	return Flags(v), true
}

// HasFlag reports whether every bit of flag is set in flags.
func HasFlag(flags, flag Flags) bool {
	return flags&flag == flag
}

// Has is shorthand for HasFlag(f, flag).
func (f Flags) Has(flag Flags) bool {
	return HasFlag(f, flag)
}
