// Package timberline tracks the quarterly 13F holdings disclosed by a single
// investment manager and compares one quarter to the next.
//
// The core functionalities include:
//   - Snapshots: the normalized list of positions of one filing, together
//     with the aggregate disclosed value, and their JSON document form.
//   - Reconciliation: a stateless comparison of the latest snapshot with the
//     previous one (percentage and value deltas, added and exited positions).
//   - Error taxonomy: the kinds of failure an ingestion run or the serving API
//     may report (network, source format, schema, data shape).
//
// Fetching and extracting filings from the aggregator site lives in the
// thirteenf package, persistence of snapshots in the store package, and the
// `tl` command-line tool wires everything together.
package timberline
