// Package graph is the task dependency graph engine. It turns a snapshot of
// tasks and dependency edges into an adjacency structure and answers
// structural questions about it: topological levels, start eligibility and
// the critical (longest blocking) path, plus a 2-D layout for rendering.
//
// Every function here is a pure function of its inputs. Callers rebuild the
// graph from a fresh snapshot whenever the underlying data changes.
package graph
