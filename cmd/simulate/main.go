package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"stock-insurance-backend/internal/config"
)

func init() {
	config.LoadEnvFile(".env", ".env.local")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("simulate failed")
		os.Exit(1)
	}
}
