// Package textutil sanitizes human-readable titles and topics into safe file
// name stems and normalizes whitespace in decoded text.
package textutil
