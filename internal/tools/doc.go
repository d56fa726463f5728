// ABOUTME: Package documentation for the board tool catalog and invocation engine
// ABOUTME: Describes the registry, default handling and the composite meeting tool

// Package tools defines the tools offered to protocol clients and executes them.
//
// The Registry is a fixed, ordered catalog of Definitions whose input schemas are
// github.com/google/jsonschema-go values. The schemas are published verbatim and are
// consulted for one thing only: default values for optional arguments. Arguments are
// not validated, so a call that omits a required field reaches the board API with an
// empty value and fails there.
//
// The Engine maps each tool Name to a handler. Construction fails unless the handler
// set equals the registry, so every listed tool is callable and nothing unlisted is.
// Handlers call a BoardAPI (normally *miro.Client) one operation at a time and return
// a single text block.
//
// setup_meeting_board is built as an ordered plan of steps: one board, five frames,
// five guidance notes and one note per participant. The plan stops at the first
// failing step and leaves already created items in place.
package tools
