// Package shared holds code used by several packages that belongs to none of
// them. Today that is testutil: log capture and archive fixtures for tests.
package shared
