package bootstrap

// Canonical service names used in bootstrap results and error reports.
const (
	ServiceDatabase    = "database"
	ServiceReporting   = "error-reporting"
	ServiceSettings    = "settings"
	ServiceChannels    = "delivery-channels"
	ServiceScheduler   = "reminder-scheduler"
	ServiceMaintenance = "retention-maintenance"
	ServiceHTTP        = "http-surface"
)
