// Package wire implements the line protocol spoken between server and client.
//
// Requests and responses are single ASCII lines of ';' separated fields
// terminated by '\n':
//
//	AUTH;<user>;<password>
//	GET;<table>;<key>                  -> <value>;<version>
//	SET;<table>;<key>;<value>[;<version>]
//	DELETE;<table>;<key>;<value>
//	QUERY;<table>;<predicates>         -> <remaining>;<key> ... or -1;0
//
// Every other response is one of the status tokens. Lines longer than
// MaxLineLen are rejected.
package wire
