// Package tablekv is a networked key/value store whose values are typed rows.
//
// Tables and their columns are declared in a YAML configuration file. Each
// record is a key plus one value per column, stored either in memory or in
// one text file per table. Clients speak a line protocol over TCP:
//
//	AUTH;<user>;<password>
//	GET;<table>;<key>
//	SET;<table>;<key>;<value>[;<version>]
//	DELETE;<table>;<key>;_
//	QUERY;<table>;<predicates>
//
// Every record carries a version stamp. A SET with a version only succeeds
// if the record is still at that version, which gives optimistic
// concurrency across sessions.
//
// # Quick Start
//
//	cfg, _ := config.Load("tablekv.yaml")
//	instance, _ := tablekv.Open(cfg)
//	defer instance.Close()
//
//	srv := instance.Server(cfg)
//	srv.Start(cfg.Addr())
//	defer srv.Stop()
//
//	c, _ := client.Dial(ctx, srv.Addr())
//	c.Auth("admin", "secret")
//	c.Set("t1", "k1", "id 3, label abc", 0)
//	keys, total, _ := c.Query("t1", "id>2,label=abc", 10)
//
// # Predicates
//
// A query names every column of the table exactly once, separated by commas.
// Integer columns accept <, > and =; string columns accept = only:
//
//	id>2,label=abc
package tablekv
