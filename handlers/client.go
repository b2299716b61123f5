package handlers

import (
	"github.com/mileusna/useragent"
	"go.uber.org/zap"
)

// clientFields describes the caller's browser for sign-in audit logs.
func clientFields(userAgent string) []zap.Field {
	if userAgent == "" {
		return []zap.Field{zap.String("device_type", "Unknown")}
	}

	ua := useragent.Parse(userAgent)

	deviceType := "Desktop"
	switch {
	case ua.Mobile:
		deviceType = "Mobile"
	case ua.Tablet:
		deviceType = "Tablet"
	case ua.Bot:
		deviceType = "Bot"
	}

	browser := "Unknown Browser"
	if ua.Name != "" {
		browser = ua.Name
		if ua.Version != "" {
			browser += " " + ua.Version
		}
	}

	os := "Unknown OS"
	if ua.OS != "" {
		os = ua.OS
		if ua.OSVersion != "" {
			os += " " + ua.OSVersion
		}
	}

	return []zap.Field{
		zap.String("browser", browser),
		zap.String("os", os),
		zap.String("device_type", deviceType),
	}
}
