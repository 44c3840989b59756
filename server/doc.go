// Package server runs the line protocol over TCP.
//
// A Server accepts connections and serves each with a Session, either on its
// own goroutine or strictly one after the other:
//
//	auth := server.NewAuthenticator(server.Credentials{Username: "admin", PasswordHash: hash})
//	srv := server.NewServer(engine, auth, server.Options{Concurrency: true})
//	if err := srv.Start("127.0.0.1:4848"); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
// A session answers every command with exactly one line, except QUERY which
// streams one line per matching key and waits for the client to acknowledge
// each with SUCCESS. Domain errors such as ERR_KEY_NOT_FOUND keep the session
// open. Unknown or malformed commands, commands sent before AUTH, a failed
// AUTH and any transport failure end it.
package server
