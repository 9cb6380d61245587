// Package daemon ties the long-running pieces together: the connectivity
// prober, the sync runner, and a lock file that enforces a single
// greenroomd instance per machine.
package daemon
