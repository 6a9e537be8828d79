// Package cad defines the in-memory CAD document consumed by the scene
// converter. A Document is an immutable product structure: an arena of
// product nodes referencing each other by ID, and an arena of shapes whose
// faces carry analytic or implicit surface descriptions.
//
// Loaders build a Document once; everything downstream only reads it.
package cad
