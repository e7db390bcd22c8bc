// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Build metadata stamped by the release pipeline via -ldflags -X;
// "spool version" prints these as-is.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
