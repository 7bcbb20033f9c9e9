// Package config provides configuration for AsciiDataFile readers, writers
// and the asciidata command.
//
// # Usage
//
//	cfg := config.NewBaseConfig("cooldown")
//	if err := config.Load("asciidata.yaml", cfg); err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Loading into a config built by NewBaseConfig keeps the defaults for any
// key the file omits. References of the form ${VAR_NAME} are replaced with
// environment values before parsing:
//
//	ingest:
//	  format: squid
//	  fill_value: .nan
//	output:
//	  format: sqlite
//	  table: ${RUN_ID}
//
// The command layers flags and ASCIIDATA_* environment variables over the
// file with viper; the YAML keys are the same.
package config
