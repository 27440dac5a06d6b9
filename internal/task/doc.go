// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous execution of campaign work
// (reconciling raw recipient lists against the directory and dispatching
// campaign messages), ensuring long-running operations don't block HTTP
// request handling and can recover from application restarts. Delivery is
// at-least-once: every job body in this package is written to converge
// under replay.
package task
