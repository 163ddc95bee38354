// Package compiler compiles declarative UI components into coordinated
// artifacts: fully resolved static markup, a preserving-expression render
// module for a host server runtime, and a client module that adopts the
// server-rendered markup and keeps it current.
//
// The pipeline is validate → build the reactive scope → allocate slot
// identifiers → run the requested backends. All three backends consume
// one Annotation produced by a single allocation walk and spell every
// hydration marker through the shared contract package, so the artifacts
// cannot disagree about which nodes are dynamic or how they are found at
// runtime.
//
// Main sub-packages:
//
//   - src/ir: the intermediate representation (closed node set, visitor)
//   - src/reactivity: cell-read substitution and expression scanning
//   - src/allocate: the slot/identifier allocator
//   - src/hydration: the marker contract both backends share
//   - src/markup: the resolved-markup backend
//   - src/render: the preserving-expression backend
//   - src/client: the client-update backend
//   - src/adapter: the host adapter contract and script registry
//
// Compile is pure: it holds no process-wide state and may be called
// concurrently for different units.
package compiler
