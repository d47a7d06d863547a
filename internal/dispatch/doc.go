// Package dispatch implements the campaign dispatch pipeline.
//
// A dispatch fans one campaign out to the mail provider in bounded-size
// chunks: recipients are validated, split into provider-sized batches, and
// sent strictly sequentially with a fixed cooldown between chunks. Each chunk
// is an independent unit of work; one chunk failing never aborts the rest.
//
// The coordinator owns all persistence. It depends on the Repository and
// Provider interfaces defined in this package and should never import from
// webhook/. Repository implementations live in repository/postgres/.
package dispatch
