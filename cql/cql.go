// Package cql compiles the text query language into filter terms. The
// grammar is a conjunction of clauses:
//
//	CONTAINS(Position, Velocity) & !CONTAINS(Frozen) & WITHOUT(Dead)
//
// CONTAINS populates the include set; WITHOUT and a negated CONTAINS populate
// the exclude set. Names resolve through the type registry.
package cql

import (
	"github.com/alecthomas/participle/v2"
	"github.com/rotisserie/eris"

	"github.com/strataforge/strata/filter"
	"github.com/strataforge/strata/types"
)

// Resolver turns a type name into its registered identity. The registry's
// Lookup method satisfies it.
type Resolver func(name string) (types.ID, error)

type cqlClause struct {
	Not     bool     `parser:"@'!'?"`
	Keyword string   `parser:"@('CONTAINS' | 'WITHOUT')"`
	Names   []string `parser:"'(' @Ident (',' @Ident)* ')'"`
}

type cqlQuery struct {
	First *cqlClause   `parser:"@@"`
	Rest  []*cqlClause `parser:"('&' @@)*"`
}

var cqlParser = participle.MustBuild[cqlQuery]()

// Parse compiles a query string into filter terms.
func Parse(query string, resolve Resolver) (filter.Terms, error) {
	parsed, err := cqlParser.ParseString("", query)
	if err != nil {
		return filter.Terms{}, eris.Wrapf(types.ErrInvalidArgument, "cql: %s", err)
	}
	clauses := append([]*cqlClause{parsed.First}, parsed.Rest...)
	terms := filter.Terms{}
	for _, clause := range clauses {
		exclude := clause.Keyword == "WITHOUT"
		if clause.Not {
			if exclude {
				return filter.Terms{}, eris.Wrap(types.ErrInvalidArgument, "cql: !WITHOUT is not a valid clause")
			}
			exclude = true
		}
		ids := make([]types.ID, 0, len(clause.Names))
		for _, name := range clause.Names {
			id, err := resolve(name)
			if err != nil {
				return filter.Terms{}, err
			}
			ids = append(ids, id)
		}
		if exclude {
			terms = terms.And(filter.Without(ids...))
		} else {
			terms = terms.And(filter.Contains(ids...))
		}
	}
	return terms, nil
}
