// Command enclaved runs the isolate engine with its debug/inspection HTTP
// server: isolate lifecycle endpoints, script runs, health, and Prometheus
// metrics. Configuration comes from the environment (and an optional TOML
// file named by ENCLAVE_CONFIG).
package main
