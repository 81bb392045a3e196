// Package hoptoad builds error notices for a Hoptoad-compatible collector.
//
// A Notice captures one failure: the error class, message and backtrace,
// the request being served (params, session, headers) and the server
// environment. It renders to the collector's XML document with ToXML and is
// delivered by a Sink, usually the HTTP submitter in sinks/remote.
//
// # Core Components
//
//   - Config: explicit configuration (API key, endpoint, proxy, timeouts, filters)
//   - Notice: the report model; request and environment data are redacted on read
//   - Redactor: recursive key-based redaction with the [FILTERED] sentinel
//   - BacktraceFilter: ordered rewrite/drop chain applied to raw frames before parsing
//   - Collector and Sink: build notices and hand them to destinations
//
// # Quick Start
//
//	cfg := hoptoad.NewConfig(
//	    hoptoad.WithAPIKey(apiKey),
//	    hoptoad.WithProjectRoot(root),
//	)
//	collector := hoptoad.NewCollector(cfg, hoptoad.WithSink(remote.NewSubmitter(cfg)))
//	if err := doWork(); err != nil {
//	    _ = collector.Notify(ctx, err)
//	}
//
// # Design Principles
//
//   - Reporting never alters the host's control flow: delivery failures are logged, not raised
//   - No hidden global state: every notice snapshots the Config it was built from
//   - No queueing or retry: each submission is one blocking POST bounded by the timeouts
package hoptoad
