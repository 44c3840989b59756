package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nickyhof/tablekv/core"
)

// Kind identifies a request command.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindGet
	KindSet
	KindDelete
	KindQuery
)

var kindNames = map[Kind]string{
	KindUnknown: "UNKNOWN",
	KindAuth:    "AUTH",
	KindGet:     "GET",
	KindSet:     "SET",
	KindDelete:  "DELETE",
	KindQuery:   "QUERY",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

func parseKind(s string) Kind {
	for kind, name := range kindNames {
		if kind != KindUnknown && name == s {
			return kind
		}
	}
	return KindUnknown
}

// Request is one parsed request line. Only the fields of its Kind are set.
type Request struct {
	Kind Kind

	// AUTH
	User     string
	Password string

	Table string
	Key   string
	// SET and DELETE. DELETE carries a value that is ignored.
	Value string
	// SET only; 0 means unconditional.
	Version uint64
	// QUERY
	Predicates string
}

// ParseRequest splits line into a Request. The number of fields must match
// the command exactly. Structural problems wrap core.ErrUnknown; a SET
// version that is not a number wraps core.ErrInvalidParam.
func ParseRequest(line string) (Request, error) {
	line = strings.TrimSuffix(line, "\r")
	fields := strings.Split(line, ";")

	req := Request{Kind: parseKind(fields[0])}
	switch req.Kind {
	case KindAuth:
		if err := expectFields(fields, 3, 3); err != nil {
			return req, err
		}
		req.User, req.Password = fields[1], fields[2]
	case KindGet:
		if err := expectFields(fields, 3, 3); err != nil {
			return req, err
		}
		req.Table, req.Key = fields[1], fields[2]
	case KindSet:
		if err := expectFields(fields, 4, 5); err != nil {
			return req, err
		}
		req.Table, req.Key, req.Value = fields[1], fields[2], fields[3]
		if len(fields) == 5 {
			version, err := strconv.ParseUint(strings.TrimSpace(fields[4]), 10, 64)
			if err != nil {
				return req, fmt.Errorf("%w: version %q", core.ErrInvalidParam, fields[4])
			}
			req.Version = version
		}
	case KindDelete:
		if err := expectFields(fields, 4, 4); err != nil {
			return req, err
		}
		req.Table, req.Key, req.Value = fields[1], fields[2], fields[3]
	case KindQuery:
		if err := expectFields(fields, 3, 3); err != nil {
			return req, err
		}
		req.Table, req.Predicates = fields[1], fields[2]
	default:
		return req, fmt.Errorf("%w: unknown command %q", core.ErrUnknown, fields[0])
	}
	return req, nil
}

func expectFields(fields []string, min, max int) error {
	if len(fields) < min || len(fields) > max {
		return fmt.Errorf("%w: %s takes %d fields, got %d", core.ErrUnknown, fields[0], min, len(fields))
	}
	return nil
}

// String encodes the request as a line without the terminator.
func (r Request) String() string {
	var fields []string
	switch r.Kind {
	case KindAuth:
		fields = []string{r.User, r.Password}
	case KindGet:
		fields = []string{r.Table, r.Key}
	case KindSet:
		fields = []string{r.Table, r.Key, r.Value}
		if r.Version != 0 {
			fields = append(fields, strconv.FormatUint(r.Version, 10))
		}
	case KindDelete:
		fields = []string{r.Table, r.Key, r.Value}
	case KindQuery:
		fields = []string{r.Table, r.Predicates}
	}
	return strings.Join(append([]string{r.Kind.String()}, fields...), ";")
}
