package main

import (
	"github.com/spf13/pflag"
	"github.com/uc-package/swimctl/internal/models"
)

// filterFlags 筛选参数，只有显式设置的参数才覆盖配置文件
type filterFlags struct {
	family        string
	version       string
	versionRegex  string
	nameContains  string
	nameRegex     string
	imageType     string
	golden        string
	olderThanDays int
	unusedOnly    bool
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.family, "family", "", "Device family, case-insensitive exact match (e.g. \"Cisco Catalyst 9300 Switch\")")
	fs.StringVar(&f.version, "version", "", "Image version, case-insensitive exact match")
	fs.StringVar(&f.versionRegex, "version-regex", "", "Regular expression matched against the version")
	fs.StringVar(&f.nameContains, "name-contains", "", "Case-insensitive substring of the image name")
	fs.StringVar(&f.nameRegex, "name-regex", "", "Regular expression matched against the image name")
	fs.StringVar(&f.imageType, "type", "", "Image type: base, smu, rommon or other")
	fs.StringVar(&f.golden, "golden", "", "Golden status: true, false or any")
	fs.IntVar(&f.olderThanDays, "older-than-days", 0, "Only images imported at least N days ago")
	fs.BoolVar(&f.unusedOnly, "unused-only", false, "Only images not used by any device")
}

func (f *filterFlags) apply(fs *pflag.FlagSet, fc *models.FilterConfig) {
	if fs.Changed("family") {
		fc.Family = f.family
	}
	if fs.Changed("version") {
		fc.Version = f.version
	}
	if fs.Changed("version-regex") {
		fc.VersionRegex = f.versionRegex
	}
	if fs.Changed("name-contains") {
		fc.NameContains = f.nameContains
	}
	if fs.Changed("name-regex") {
		fc.NameRegex = f.nameRegex
	}
	if fs.Changed("type") {
		fc.Type = f.imageType
	}
	if fs.Changed("golden") {
		fc.Golden = f.golden
	}
	if fs.Changed("older-than-days") {
		fc.OlderThanDays = f.olderThanDays
	}
	if fs.Changed("unused-only") {
		fc.UnusedOnly = f.unusedOnly
	}
}

// runFlags 删除运行参数
type runFlags struct {
	dryRun       bool
	yes          bool
	limit        int
	concurrency  int
	unlockGolden bool
	siteID       string
	deviceFamily string
	deviceRole   string
	legacyDelete bool
	pollTimeout  int
}

func (r *runFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&r.dryRun, "dry-run", false, "Only show what would be deleted")
	fs.BoolVarP(&r.yes, "yes", "y", false, "Do not ask for confirmation")
	fs.IntVar(&r.limit, "limit", 0, "Process at most N candidates (0 means no limit)")
	fs.IntVar(&r.concurrency, "concurrency", 1, "Number of images processed in parallel")
	fs.BoolVar(&r.unlockGolden, "unlock-golden", false, "Remove the golden tag before deleting golden images")
	fs.StringVar(&r.siteID, "site-id", "", "Site UUID for golden unlock (-1 for Global)")
	fs.StringVar(&r.deviceFamily, "device-family-identifier", "", "Device family identifier for golden unlock")
	fs.StringVar(&r.deviceRole, "device-role", "", "Device role for golden unlock (e.g. ALL, ACCESS, CORE)")
	fs.BoolVar(&r.legacyDelete, "legacy-delete", true, "Fall back to the legacy delete endpoint when the primary one is missing")
	fs.IntVar(&r.pollTimeout, "task-timeout", 0, "Seconds to wait for each deletion task (default from config)")
}

func (r *runFlags) apply(fs *pflag.FlagSet, config *models.Config) {
	if fs.Changed("dry-run") {
		config.Run.DryRun = r.dryRun
	}
	if fs.Changed("yes") {
		config.Run.AutoConfirm = r.yes
	}
	if fs.Changed("limit") {
		config.Run.Limit = r.limit
	}
	if fs.Changed("concurrency") {
		config.Run.Concurrency = r.concurrency
	}
	if fs.Changed("unlock-golden") {
		config.Unlock.Enabled = r.unlockGolden
	}
	if fs.Changed("site-id") {
		config.Unlock.SiteID = r.siteID
	}
	if fs.Changed("device-family-identifier") {
		config.Unlock.DeviceFamilyIdentifier = r.deviceFamily
	}
	if fs.Changed("device-role") {
		config.Unlock.DeviceRole = r.deviceRole
	}
	if fs.Changed("legacy-delete") {
		config.Catalyst.LegacyDelete = r.legacyDelete
	}
	if fs.Changed("task-timeout") {
		config.Polling.TimeoutSeconds = r.pollTimeout
	}
}
