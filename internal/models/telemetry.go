package models

// Movement is the motion payload carried by location and violation events.
type Movement struct {
	SpeedKmh       float64 `bson:"speed_kmh" json:"speed_kmh"`
	HeadingDegrees float64 `bson:"heading_degrees" json:"heading_degrees"`
	Moving         bool    `bson:"moving" json:"moving"`
}

// Device is the tracker device status payload.
type Device struct {
	BatteryLevel *float64 `bson:"battery_level,omitempty" json:"battery_level,omitempty"`
	Charging     bool     `bson:"charging" json:"charging"`
}

// Telemetry is the engine/vehicle bus payload.
type Telemetry struct {
	OdometerKm         float64  `bson:"odometer_km" json:"odometer_km"`
	FuelLevelPercent   *float64 `bson:"fuel_level_percent,omitempty" json:"fuel_level_percent,omitempty"`
	EngineHours        float64  `bson:"engine_hours" json:"engine_hours"`
	CoolantTempCelsius float64  `bson:"coolant_temp_celsius" json:"coolant_temp_celsius"`
	OilPressureKpa     float64  `bson:"oil_pressure_kpa" json:"oil_pressure_kpa"`
	BatteryVoltage     float64  `bson:"battery_voltage" json:"battery_voltage"`
}
