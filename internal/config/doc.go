// Package config defines configuration structures for the acquire CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (ACQUIRE_ prefix), optionally from a .env file
//   - YAML configuration file
//
// Precedence is flags over environment over file over defaults.
//
// # Example
//
//	watch:
//	  dir: ~/Descargas
//	  timeout: 90s
//	  poll_interval: 800ms
//	  purge: true
//	  purge_patterns: ["EST31100*", "*Inventario_Clinica_*"]
//	probe:
//	  min_size: 1KB
//	dest:
//	  root: /srv/inventario
//	  label: Inventario
//	settle: 5s
//	trigger:
//	  kind: browser
//	  url: https://erp.example.com/export?clinic={{.ID}}
//	  selector: "#export"
//	units:
//	  - id: "0001"
//	    name: HEALTHY MATRIZ
//	  - id: "0011"
//	    name: PLANTA IBAGUE
//
// When watch.dir is unset, ResolveWatchDir falls back to a cached location
// and then to ~/Downloads or ~/Descargas.
package config
