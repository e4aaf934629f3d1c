// Package mail builds and picks apart Gmail wire messages: RFC 2822
// composition with multipart bodies and attachments on the way out,
// header and body extraction from API part trees on the way in.
package mail
