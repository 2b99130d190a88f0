// Package core defines the shared contracts of the workflow engine: the
// Scope state bag, the Agent and Stage interfaces, the error taxonomy and
// the result/trace types. Everything else in the module builds on these
// types; core itself has no third-party dependencies by design so the
// orchestration contract stays portable across providers and transports.
package core
