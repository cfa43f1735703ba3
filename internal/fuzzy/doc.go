// Package fuzzy converts raw relevance signals into linguistic-strength
// memberships and a blended confidence.
//
// The output is one weighted signal for the result blender plus human
// readable justification text; it never decides the final rank on its own.
package fuzzy
