// Package main is the entry point for driftwatch.
package main

import (
	"github.com/sirupsen/logrus"

	"github.com/driftwatch/driftwatch/cmd"
)

func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

func main() {
	cmd.Execute()
}
