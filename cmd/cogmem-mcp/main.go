// cogmem-mcp is intentionally not implemented. The tool-dispatch front
// end that would expose the engine's commands to an assistant's MCP tool
// surface is an external collaborator, specified only at its interface
// (the command surfaces in cmd/cogmem). A host wiring cogmem into an MCP
// server imports internal/retrieval, internal/location, and
// internal/store directly, the same way cmd/cogmem does.
package main

func main() {}
