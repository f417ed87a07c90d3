// Command ottuser provides operator tooling for the multi-user account
// model backing the server.
//
// It supports the following operations:
//   - create: Create a new user account
//   - list:   List every existing username
//   - reset:  Reset a user's password, invalidating their sessions
//   - delete: Delete a user account and its sessions/watch history
//
// Usage:
//
//	ottuser <command>
//
// Environment:
//
//	DATA_DIR - Path to the data directory holding app.db (default: ./data)
//	DB_PATH  - Full path to the database file, overrides DATA_DIR-derived path
package main
