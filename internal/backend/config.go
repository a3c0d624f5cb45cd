package backend

import (
	"fmt"

	"orgledger/internal/config"
)

// FromAppConfig converts the application config to source config. A Google
// spreadsheet ID wins over a local sheet file.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	sourceType := NoSource
	switch {
	case appConfig.SheetsEnabled():
		sourceType = GoogleSource
	case appConfig.SheetFile != "":
		sourceType = FileSource
	}

	return Config{
		Type: sourceType,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetRange:         appConfig.GoogleSheetRange,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,

		SheetFile: appConfig.SheetFile,
	}, nil
}
