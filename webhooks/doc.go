// Package webhooks contains provider callback authentication: raw-body HMAC
// signature verification and the subscription challenge handshake.
//
// Verification is a pure function of the request; it never logs and never
// mutates state, so the pipeline can reject adversarial traffic before any
// processing begins.
package webhooks
