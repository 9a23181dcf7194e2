// Package template adapts pongo2 to the rendering contract used by the charm
// render helper. It owns template set construction, loaders, per-render
// filters and test predicates, and the conversion of Go values into pongo2
// contexts.
//
// pongo2 keeps its filter table and autoescape flag process-wide. The first
// New call turns autoescaping off and adds a trim filter, and custom filters
// are installed globally as dispatchers. Other pongo2 users in the same
// program see those changes.
package template
