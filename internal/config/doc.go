// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/valleymod/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/valleymod/config.cue on macOS and
// %APPDATA%\valleymod\config.cue on Windows), validated against the embedded
// config_schema.cue, and then overridden by VALLEYMOD_* environment variables
// (VALLEYMOD_GAME_PATH, VALLEYMOD_CATALOG_TIMEOUT, ...).
package config
