// Package sink ships simulator activity to external systems.
//
// AMQPPublisher pushes change events onto a RabbitMQ queue so other store
// tooling can follow topology edits. InfluxRecorder writes one point per
// pipeline run with device state counts and finding totals. Both are
// optional and configured in the events and metrics config sections.
package sink
