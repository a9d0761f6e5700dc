// Package cli implements the wahctl command tree.
//
// Every flag may also be set in the TOML file named by --config or through
// an environment variable: WAHCTL_ followed by the upper-cased flag name with
// dashes replaced by underscores (WAHCTL_DDB_TABLE for --ddb-table). Flags
// win over the environment, which wins over the config file.
package cli
