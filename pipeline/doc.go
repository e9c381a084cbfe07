// Package pipeline sequences webhook ingestion: verify, acknowledge, extract,
// hash, persist.
//
// Acknowledgment is sent before any processing so provider retry pressure is
// decoupled from processing latency. Everything after the ack is terminal
// but contained: failures surface only through logs and metrics, never back
// to the provider. Stronger delivery confirmation requires external
// reconciliation (see the audit package).
package pipeline
