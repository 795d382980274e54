// Package config loads, normalizes, and validates scribe's TOML
// configuration. Defaults cover local single-user operation; the sample
// config documents every knob.
package config
