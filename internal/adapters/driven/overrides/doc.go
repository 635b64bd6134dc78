// Package overrides loads asset spec override rules from a YAML file.
//
// A rules file looks like:
//
//	version: 1
//	rules:
//	  - service: postgres
//	    table: "public.*"
//	    metadata:
//	      owner: app-team
//	    deps:
//	      - "raw/{source_schema}/{source_table}"
//
// Rules implements driving.AssetSpecOverrides; Watcher does the same while
// reloading the file when it changes on disk.
package overrides
