// Package logging writes driftwatch's startup summary, reporting the
// effective filter, schedule, and HTTP API configuration.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// WriteStartupMessage logs the effective configuration once at startup
// unless suppressed by the no-startup-message flag.
func WriteStartupMessage(
	c *cobra.Command,
	version string,
	interval time.Duration,
	schedule string,
	filtering string,
) {
	if suppressed, _ := c.PersistentFlags().GetBool("no-startup-message"); suppressed {
		return
	}

	logrus.WithField("version", version).Info("Driftwatch started")
	logrus.Info(filtering)
	logrus.WithField("interval", interval).Info("Checking for image updates periodically")

	if schedule != "" {
		logrus.WithField("schedule", schedule).
			Info("Additional checks triggered by cron schedule")
	}

	if enabled, _ := c.PersistentFlags().GetBool("http-api"); enabled {
		addr, _ := c.PersistentFlags().GetString("http-api-addr")
		if addr == "" {
			addr = ":8080"
		}

		logrus.WithField("addr", addr).Info("HTTP API enabled")
	}
}
