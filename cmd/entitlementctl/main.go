// entitlementctl evalúa catálogos, matrices y decisiones de acceso contra un fixture YAML,
// sin base de datos. Útil para revisar un cambio de planes o dependencias antes de migrarlo.
//
// Uso:
//
//	entitlementctl -f fixture.yaml catalog validate
//	entitlementctl -f fixture.yaml resolve --store <id> [--explain]
//	entitlementctl -f fixture.yaml authorize --store <id> --path /stock --role stocker --caps stock.view
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
