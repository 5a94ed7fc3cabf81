package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// pumpOutput copies subprocess output into the log file line by line,
// prefixing each line with a timestamp. Closes done when the stream ends.
func pumpOutput(r io.Reader, w io.Writer, done chan struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fmt.Fprintf(w, "[%s] %s\n", logTimestamp(), scanner.Text())
	}
}

// splitCommand breaks a command line into arguments, honoring single and
// double quotes and backslash escapes outside single quotes.
func splitCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	var inArg bool

	const (
		stateNone = iota
		stateSingle
		stateDouble
	)
	state := stateNone
	escaped := false

	for _, r := range command {
		switch {
		case escaped:
			current.WriteRune(r)
			inArg = true
			escaped = false
		case state == stateSingle:
			if r == '\'' {
				state = stateNone
			} else {
				current.WriteRune(r)
			}
		case r == '\\':
			escaped = true
		case state == stateDouble:
			if r == '"' {
				state = stateNone
			} else {
				current.WriteRune(r)
			}
		case r == '\'':
			state = stateSingle
			inArg = true
		case r == '"':
			state = stateDouble
			inArg = true
		case r == ' ' || r == '\t' || r == '\n':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}

	if state != stateNone {
		return nil, errors.New("unterminated quote")
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
