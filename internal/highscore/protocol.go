// Package highscore implements the plain-text score backend: one request
// line per TCP connection, answered by one reply line.
package highscore

import (
	"fmt"
	"strconv"
	"strings"
)

// Commands.
const (
	CmdGet = "GET_HIGHSCORE"
	CmdSet = "SET_HIGHSCORE"
)

// Replies.
const (
	ReplyUpdated       = "Highscore updated"
	ReplyInvalidSet    = "Invalid SET_HIGHSCORE format"
	ReplyInvalidScore  = "Invalid score value"
	ReplyInvalidInput  = `Invalid input format. Expected "COMMAND payload"`
	ReplyUnknown       = "Unknown command"
	ReplyStorageFailed = "Error accessing database"
)

// maxLineSize bounds a request line.
const maxLineSize = 1024

// SetLine formats a score report.
func SetLine(user string, deaths int) string {
	return fmt.Sprintf("%s %s, %d", CmdSet, user, deaths)
}

// GetLine formats a score lookup.
func GetLine(user string) string {
	return CmdGet + " " + user
}

// request is a parsed command line.
type request struct {
	cmd     string
	payload string
}

func parseRequest(line string) (request, bool) {
	cmd, payload, ok := strings.Cut(strings.TrimSpace(line), " ")
	if !ok {
		return request{}, false
	}
	return request{cmd: cmd, payload: strings.TrimSpace(payload)}, true
}

// parseSet splits "<user>, <deaths>". The second result is the reply to
// send when parsing fails.
func parseSet(payload string) (string, int, string) {
	parts := strings.Split(payload, ",")
	if len(parts) != 2 {
		return "", 0, ReplyInvalidSet
	}
	user := strings.TrimSpace(parts[0])
	if user == "" {
		return "", 0, ReplyInvalidSet
	}
	deaths, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", 0, ReplyInvalidScore
	}
	return user, deaths, ""
}
