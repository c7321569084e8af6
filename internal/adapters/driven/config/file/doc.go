// Package file loads the process configuration from a TOML file and the
// environment.
//
// Settings live in ~/.issuesync/config.toml unless another path is given.
// Secrets are never read from the file: the GitHub credentials and the
// index API key come from the environment, optionally seeded from a .env
// file.
package file
