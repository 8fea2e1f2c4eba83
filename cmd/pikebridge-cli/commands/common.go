// common.go — shared utilities for command argument parsing.
package commands

// parseFlag extracts a flag value from an args slice, returning the value
// and remaining args with the flag pair removed.
func parseFlag(args []string, flag string) (string, []string) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			val := args[i+1]
			remaining := make([]string, 0, len(args)-2)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+2:]...)
			return val, remaining
		}
	}
	return "", args
}

// parseFlagInt extracts an integer flag value from an args slice.
func parseFlagInt(args []string, flag string) (int, bool, []string) {
	val, remaining := parseFlag(args, flag)
	if val == "" {
		return 0, false, args
	}
	n := 0
	neg := false
	for i, c := range val {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, false, args
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true, remaining
}

// parseFlagBool checks whether a boolean flag is present in args.
func parseFlagBool(args []string, flag string) (bool, []string) {
	for i, a := range args {
		if a == flag {
			remaining := make([]string, 0, len(args)-1)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+1:]...)
			return true, remaining
		}
	}
	return false, args
}
