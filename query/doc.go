// Package query provides predicate lexing, parsing and evaluation for tablekv.
//
// A QUERY carries exactly one predicate per table column, separated by
// commas. Each predicate is "<column><op><literal>" where op is one of
// "=", "<" or ">". Integer columns accept all three operators, string
// columns accept only "=".
//
// # Lexer Usage
//
//	lexer := query.NewLexer("id>2,label=abc")
//	for {
//	    token := lexer.NextToken()
//	    if token.Type == query.EOF {
//	        break
//	    }
//	    fmt.Printf("Token: %s = %s\n", token.Type, token.Value)
//	}
//
// # Parser Usage
//
//	predicates, err := query.Parse("id>2,label=abc", table)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if predicates.Match(row) {
//	    // ...
//	}
package query
