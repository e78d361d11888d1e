package settings

import "time"

// Recognised configuration keys.
const (
	KeyColorNotifications  = "ENABLE_COLOR_NOTIFICATIONS"
	KeyNewRecords          = "ENABLE_NEW_RECORDS"
	KeyNotificationDelayMS = "NOTIFICATION_DELAY_MS"
	KeyMaxPerMinute        = "MAX_NOTIFICATIONS_PER_MINUTE"
	KeyDebugLogging        = "ENABLE_DEBUG_LOGGING"
	KeySystemSheetsExclude = "SYSTEM_SHEETS_EXCLUDE"
)

const (
	DefaultConfigSheet = "Настройки"
	CacheTTL           = 5 * time.Minute

	rateLimitKey = "notifications"
)

// Defaults returns the hardcoded settings. The exclude list defaults to the
// configuration sheet itself so edits to it never notify.
func Defaults(configSheet string) map[string]interface{} {
	return map[string]interface{}{
		KeyColorNotifications:  true,
		KeyNewRecords:          true,
		KeyNotificationDelayMS: float64(1000),
		KeyMaxPerMinute:        float64(10),
		KeyDebugLogging:        false,
		KeySystemSheetsExclude: configSheet,
	}
}
