// Package config provides configuration loading for the auditor.
//
// # Configuration Sources
//
// Configuration is assembled in the following order, later sources
// overriding earlier ones:
//
//	1. Default values (Default)
//	2. YAML file: dqaudit.yaml or configs/dqaudit.yaml
//	3. Environment variables with the DQA_ prefix
//
// # Environment Variables
//
//	DQA_LOGGING_LEVEL=debug
//	DQA_LOGGING_OUTPUT=both
//	DQA_LOGGING_FILE_PATH=logs/auditor.log
//	DQA_TELEMETRY_TRACE_EXPORTER=stdout
//	DQA_TELEMETRY_METRIC_EXPORTER=prometheus
//	DQA_AUDIT_WORKERS=4
//	DQA_AUDIT_FAIL_FAST=true
//
// Only ambient behaviour is configurable. The data directory
// (DefaultDataDir) and the list of audited files are fixed.
package config
