// Package scene turns a parsed CAD document into a render scene: a node tree
// mirroring the product structure plus a flat list of triangle meshes with
// per-face color overrides.
//
// The pipeline is single-threaded and synchronous. Converter.Assemble
// resolves tessellation tolerances, walks the product structure depth-first
// with an explicit stack, and builds one mesh (or more, when a vertex limit
// is configured) per shape occurrence. Shared shapes are tessellated and
// emitted once per occurrence; geometry is never shared across meshes.
package scene
