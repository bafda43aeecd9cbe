// Package daemonctl launches, stops, and inspects the casebook daemon
// process on behalf of CLI commands.
package daemonctl
