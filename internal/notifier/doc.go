// Package notifier fans wifi events out to the local popup, every
// reachable GNTP host and any extra sinks (Telegram, NATS).
//
// # Delivery
//
// Router.Dispatch is serialized by one lock that covers choosing the
// available hosts, showing the popup and queueing the sends. Remote sends
// run on a small bounded pool of workers owned by a supervisor; each host
// is pinned to one worker so a host sees its notifications in dispatch
// order. Dispatch never waits for a network round trip.
//
// # Failure policy
//
// A host that fails once is marked unavailable and skipped until
// Reinitialize builds a fresh set of connections. Sinks are best-effort:
// their failures are logged and counted but never disable them.
package notifier
