/*
Package config loads the broker's runtime configuration: MAX_QUEUE_SIZE,
PROCESSING_TIMEOUT, and KEEPALIVE_INTERVAL, plus the host, port, and logging
settings needed to start the process.

# Precedence

Default() establishes the documented defaults. Load reads an optional YAML
file over them, then applies environment variable overrides — env vars
always take precedence over the file, so an operator can override a single
value at deploy time without forking the config file.
*/
package config
