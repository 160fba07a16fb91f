// Package inbound turns raw account lifecycle notifications into canonical
// core events and drives one invocation per delivery, with optional
// ledger-backed dedupe for at-least-once transports.
package inbound
