package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nickyhof/tablekv/core"
)

const (
	Success                 = "SUCCESS"
	ErrInvalidParam         = "ERR_INVALID_PARAM"
	ErrTableNotFound        = "ERR_TABLE_NOT_FOUND"
	ErrKeyNotFound          = "ERR_KEY_NOT_FOUND"
	ErrNotAuthenticated     = "ERR_NOT_AUTHENTICATED"
	ErrAuthenticationFailed = "ERR_AUTHENTICATION_FAILED"
	ErrTransactionAbort     = "ERR_TRANSACTION_ABORT"
	ErrConnectionFail       = "ERR_CONNECTION_FAIL"
	ErrUnknown              = "ERR_UNKNOWN"

	// QueryEmpty is the whole reply to a QUERY that matches nothing.
	QueryEmpty = "-1;0"
)

var tokens = []struct {
	token string
	err   error
}{
	{ErrInvalidParam, core.ErrInvalidParam},
	{ErrTableNotFound, core.ErrTableNotFound},
	{ErrKeyNotFound, core.ErrKeyNotFound},
	{ErrNotAuthenticated, core.ErrNotAuthenticated},
	{ErrAuthenticationFailed, core.ErrAuthenticationFailed},
	{ErrTransactionAbort, core.ErrTransactionAbort},
	{ErrConnectionFail, core.ErrConnectionFail},
	{ErrUnknown, core.ErrUnknown},
}

// ErrorToken returns the status token for err. A nil error is SUCCESS;
// capacity overflow and unclassified errors are ERR_UNKNOWN.
func ErrorToken(err error) string {
	if err == nil {
		return Success
	}
	for _, t := range tokens {
		if errors.Is(err, t.err) {
			return t.token
		}
	}
	return ErrUnknown
}

// TokenError returns the error kind named by an error token, or nil when line
// is not one.
func TokenError(line string) error {
	for _, t := range tokens {
		if line == t.token {
			return t.err
		}
	}
	return nil
}

// FormatValue builds the reply to GET.
func FormatValue(value string, version uint64) string {
	return value + ";" + strconv.FormatUint(version, 10)
}

// ParseValue splits a GET reply. The version is the field after the last ';'.
func ParseValue(line string) (string, uint64, error) {
	idx := strings.LastIndexByte(line, ';')
	if idx < 0 {
		return "", 0, fmt.Errorf("%w: malformed value reply %q", core.ErrUnknown, line)
	}
	version, err := strconv.ParseUint(line[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: malformed version in %q", core.ErrUnknown, line)
	}
	return line[:idx], version, nil
}

// FormatQueryLine builds one line of a QUERY stream. remaining counts the
// lines still to come after this one.
func FormatQueryLine(remaining int, key string) string {
	return strconv.Itoa(remaining) + ";" + key
}

// ParseQueryLine splits one line of a QUERY stream. QueryEmpty parses as
// remaining -1.
func ParseQueryLine(line string) (int, string, error) {
	count, key, ok := strings.Cut(line, ";")
	if !ok {
		return 0, "", fmt.Errorf("%w: malformed query reply %q", core.ErrUnknown, line)
	}
	remaining, err := strconv.Atoi(count)
	if err != nil || remaining < -1 {
		return 0, "", fmt.Errorf("%w: malformed query count %q", core.ErrUnknown, count)
	}
	return remaining, key, nil
}
