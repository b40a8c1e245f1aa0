// Package telemetry defines the session report a developer tool submits at
// the end of a session, its validation rules, and the pluggable matcher used
// to attribute submitted commands to technologies.
package telemetry
