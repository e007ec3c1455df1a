package engine

import (
	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

// reportDiskUsage logs the filesystem situation of the storage path.
// Failures are logged and ignored; the report is informational only.
func reportDiskUsage(log *logrus.Logger, path string) {
	usage, err := disk.Usage(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("could not read disk usage")
		return
	}
	log.WithFields(logrus.Fields{
		"path":        path,
		"totalBytes":  usage.Total,
		"freeBytes":   usage.Free,
		"usedPercent": usage.UsedPercent,
	}).Info("storage path disk usage")
}
