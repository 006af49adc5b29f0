// Package ports defines the interfaces between the orchestration core and
// its adapters: event bus, run store and metrics collector. The core
// depends only on these interfaces; concrete backends live under
// pkg/adapters.
package ports
