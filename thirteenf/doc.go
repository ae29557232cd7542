// Package thirteenf reads 13F filings from the aggregator site.
//
// An ingestion run is a sequence of steps, each one needing the output of the
// previous one:
//
//	manager page -> ListFilingIDs -> filing page -> ResolveDataLocation -> payload -> Extractor
//
// The latest and previous filings are read concurrently by a Pipeline, which
// publishes both snapshots only when both were read.
package thirteenf
