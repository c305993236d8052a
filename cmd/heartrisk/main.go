// Command heartrisk serves and runs heart disease risk assessments.
//
//	@title			Heart Risk API
//	@version		1.0
//	@description	Heart disease risk estimation from four patient measurements.
//	@BasePath		/
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
