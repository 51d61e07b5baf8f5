// Package aws discovers running EC2 instances with the AWS SDK for Go v2,
// optionally narrowed by tag filters.
package aws
