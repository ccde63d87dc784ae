// Command labcal converts optical-density readings into hormone
// concentrations using calibration curves fitted to reference standards.
package main

import (
	"log"

	"github.com/rewired-gh/labcal/internal/logger"
)

func main() {
	err := rootCommand().Execute()
	logger.Sync()
	if err != nil {
		// The logger may not be initialized when configuration fails.
		log.Fatalf("labcal: %v", err)
	}
}
