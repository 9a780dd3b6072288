// Package file loads the client configuration from a TOML file.
//
// Values are layered: built-in defaults, then the file, then .env and
// CAMPUSBRIDGE_* environment variables. ConfigStore implements
// driven.ConfigResolver and can watch its file for changes.
package file
