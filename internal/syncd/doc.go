// Package syncd implements the background synchronization engine that
// reconciles the offline submission queue with the remote service.
//
// The engine runs one cycle at a time: probe connectivity, read pending
// submissions, call the gateway for each sequentially, apply the returned
// action (upload/download/conflict), account retries, and broadcast
// aggregate Stats to subscribers. A single-flight guard makes concurrent
// triggers (timer tick vs manual SyncNow) bail out immediately instead of
// queuing.
//
// Nothing escapes a cycle: gateway errors and panics are contained per
// item, and every cycle returns Stats even when all items failed.
package syncd
