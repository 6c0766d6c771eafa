// Package memory provides in-process implementations of the vista ports: a
// DOM-like tree, a cooperative view transition platform and a transition journal.
// They back tests, replays and the HTTP playground.
package memory
