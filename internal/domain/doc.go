// Package domain models coastal environmental sensor readings and the rules
// that turn them into risk levels and alerts.
//
// # Readings
//
// A sensor (or the simulator) reports one measurement per location and time:
//
//	tide_m    tide height in metres above chart datum
//	wind_kmh  sustained wind speed in km/h
//	temp_c    air temperature in degrees Celsius
//	rain_mm   accumulated rainfall in millimetres
//
// Readings are immutable once recorded. Field presence is checked by the
// ingestion layer before a reading reaches this package; every function here
// is total over numeric input.
//
// # Thresholds
//
// Four cutoffs drive every decision. They are loaded once from the environment
// and passed explicitly to each call:
//
//	Tide watch    2.5 m
//	Tide warning  3.2 m
//	Wind warning  60 km/h
//	Rain watch    50 mm
//
// # Risk classification
//
// [Classify] maps a reading to one of four ordered levels, checking the most
// severe rule first:
//
//	warning   tide >= tide warning AND wind >= wind warning
//	watch     tide >= tide watch AND rain >= rain watch
//	advisory  tide >= tide watch OR wind >= 0.7 x wind warning OR rain >= 0.7 x rain watch
//	normal    none of the above
//
// The advisory soft limits are derived from the hard thresholds (70%), not
// configured independently.
//
// # Alerts
//
// [DetectAlerts] evaluates two independent rules per reading. A flood watch
// (level watch) needs high tide and heavy rain; a storm surge warning (level
// warning) needs critical tide and high wind. Both may fire for one reading.
// Advisory and normal classifications never produce alerts: they only colour
// map markers.
//
// [SynthesizeScenario] builds a canned alert for demonstrations without
// looking at any reading.
//
// Alert messages are bilingual: English and Hindi.
package domain
