// Package queryir defines the query document the translator produces: a
// single-table SELECT with an optional list of conditions, ordering keys and
// a row limit.
//
// The document is backend neutral. querysql renders it as literal SQL for
// display or as parameterized SQL for execution.
//
// JSON form:
//
//	{
//	  "table": "assets",
//	  "select": ["*"],
//	  "where": [{"column": "site", "operator": "=", "value": 54}],
//	  "order_by": [],
//	  "limit": null
//	}
//
// Conditions carry a "logic" connector only when there is more than one,
// and every condition in a query carries the same connector.
//
// ToIR converts a Query into an ir.IRObject for canonical encoding and
// fingerprinting. Validate reports structural problems as warnings; the
// builder coerces the shapes it can repair.
package queryir
