// Package audit provides the integrity sweep that runs behind the ingestion
// path. Acknowledging webhooks before persistence means a delivery can be
// acked and still fail to land; the reconciler periodically scans the stored
// window and surfaces gaps through logs and metrics so operators can spot
// silent loss without blocking the hot path.
package audit
