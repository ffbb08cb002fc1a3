// Package memory implements the repositories in process memory. It backs the server when no
// DATABASE_URL is configured and gives tests a real store to run against.
package memory
