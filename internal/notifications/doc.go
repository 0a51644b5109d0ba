// Package notifications delivers alert messages via pluggable transports.
//
// The default implementation posts to an ntfy-style webhook using the URL
// configured under [alerts] and gracefully degrades to a no-op when no
// webhook is set. The alert dispatcher is the only regular caller; it formats
// queued alert rows into Messages so delivery stays free of HTTP glue.
//
// Extend this package if you need alternative transports; callers depend only
// on the small Service interface.
package notifications
