// Package domain contains the core business entities for quire.
// It has no dependencies on infrastructure or adapters.
package domain
