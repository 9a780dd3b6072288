// Package fixtures provides canned response bodies for fake mode.
package fixtures
