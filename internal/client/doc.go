// Package client talks to a running romshelfd over its HTTP API. The CLI uses
// it for every command that reads or changes the catalog through the daemon.
package client
