// Package agent supplies the concrete core.Agent implementations used to
// assemble workflows: Model drives a language model through a templated
// prompt and an optional tool-calling loop, Func wraps a plain Go function
// for deterministic steps such as parsing, and Base carries the identity and
// key contract shared by both.
package agent
