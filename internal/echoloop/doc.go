// Package echoloop is a reactor-driven TCP echo server used by netioctl to
// exercise the socket driver and multiplexer end to end.
package echoloop
