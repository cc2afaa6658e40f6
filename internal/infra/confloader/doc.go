// Package confloader loads layered configuration with koanf.
//
// Sources, highest priority first:
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (CHATMESH_ prefix, "__" separates sections)
//  3. A YAML configuration file
//  4. Defaults already present in the target struct
//
// Watcher reports changes of the configuration file so a running node can
// re-apply the settings that support it.
package confloader
