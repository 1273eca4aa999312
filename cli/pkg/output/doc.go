// Package output renders command results as a table, JSON, YAML or bare
// values.
//
// Commands hand over display column names together with the matching
// values. Values implementing sdkutils.FormattableColumn are rendered with
// their human readable form in table and value output and with their
// machine readable form in JSON and YAML output.
package output
