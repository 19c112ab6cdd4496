// Package inbound normalizes transport-originated payloads into call facts
// and routes them into the lifecycle coordinator.
//
// A payload that is not a call fact is ignored, not an error: transports
// deliver mixed traffic and only call facts concern this module.
package inbound
