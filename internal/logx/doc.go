// Package logx is cadence's structured logger, a thin value-type wrapper on
// top of zerolog.
//
// Console output is human readable with a short caller; the optional file
// sink is JSON. A Logger obtained from a Service follows Service.Apply, so a
// config reload can change level and sinks without re-wiring components.
package logx
