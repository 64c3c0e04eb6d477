// Package config loads the watchdog configuration.
//
// Files are HCL (default) or JSON, chosen by extension. Every setting is
// optional; unset or zero values take the compiled-in defaults from
// [Default]. Durations are Go duration strings ("60s", "3h").
//
// Example:
//
//	interface      = "eth0"
//	high_watermark = 9216
//	required_count = 10
//	poll_interval  = "60s"
//	initial_delay  = "3h"
//	bounce_interval = "10m"
//
//	logging {
//	  level = "info"
//	  syslog {
//	    host = "10.0.0.5"
//	  }
//	}
//
//	metrics {
//	  listen = "127.0.0.1:9469"
//	}
package config
