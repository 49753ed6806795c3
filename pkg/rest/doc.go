// Package rest translates REST requests into operations on a record
// store. It accepts an HTTP verb, an entity name, an optional record
// id, and query parameters, and produces either a fully specified data
// operation or a structured error.
//
// Entities are exposed at /{Entity} and /{Entity}/{ID}. Query
// parameters carry a small filter DSL: a column name, optionally
// followed by a modifier after the configured separator (default "__"):
//
//	Parameter                 | Description
//	--------------------------|------------------------------------------
//	?title=chair              | Equality filter
//	?title__StartsWith=ch     | Prefix match
//	?title__EndsWith=air      | Suffix match
//	?title__PartialMatch=hai  | Substring match
//	?price__GreaterThan=10    | Comparison
//	?price__LessThan=10       | Comparison
//	?title__Negation=chair    | Inequality
//	?title__Sort=ASC          | Order by column (ASC or DESC)
//	?sort=ASC                 | Order by id
//	?limit=10 or ?limit=10,20 | Limit, optionally with offset
//	?rand=123                 | Random order, seeded when a value is given
//
// Clauses apply in wire order. When no limit clause is present a
// configured default (100 by default) caps the result; a negative
// configured default disables the cap.
//
// Bodies are JSON attribute maps. Scalar values update fields or
// reassign to-one relations; lists of ids replace the member set of a
// to-many relation. The reserved key "ManyManyExtraFields" carries
// join-table fields per relation and target id.
//
// Example usage:
//
//	store := memory.NewStore()
//	handler := rest.NewHandler(store)
//	server := rest.NewServer(handler)
//	log.Fatal(server.Start(":8080"))
package rest
