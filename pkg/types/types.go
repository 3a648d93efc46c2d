package types

// Environment is the latest-reading snapshot served to dashboards.
// "No data yet" is represented by the zero value, never by a 404.
type Environment struct {
	AirTemp  float64 `json:"air_temp"`
	Humidity float64 `json:"humidity"`
	Lux      float64 `json:"lux"`
	LeafTemp float64 `json:"leaf_temp"`
}

// DeviceStatus is the wire shape for actuator state queries.
type DeviceStatus struct {
	Status   bool `json:"status"`
	Online   bool `json:"online"`
	AutoMode bool `json:"auto_mode"`
}

type SensorValue struct {
	Value float64 `json:"value"`
}

// SensorLogEntry is a single time-series row as exported to clients.
type SensorLogEntry struct {
	LogID      int64   `json:"log_id"`
	PlotID     int     `json:"plot_id"`
	AirTemp    float64 `json:"air_temp"`
	Humidity   float64 `json:"humidity"`
	Lux        float64 `json:"lux"`
	LeafTemp   float64 `json:"leaf_temp"`
	WaterLevel float64 `json:"water_level"`
	CwsiValue  float64 `json:"cwsi_value"`
	Timestamp  string  `json:"timestamp"`
}

type User struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	UserType string `json:"user_type"`
}

type TokenResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
	Message      string `json:"message,omitempty"`
}

// PlotRequest is the accepted body for plot create/update. PlantingDate
// uses the 2006-01-02 layout and defaults to today when omitted.
type PlotRequest struct {
	UserID       int     `json:"user_id"`
	PlotName     string  `json:"plot_name"`
	ImagePath    string  `json:"image_path"`
	PlantType    string  `json:"plant_type"`
	PlantingDate string  `json:"planting_date"`
	LeafTemp     float64 `json:"leaf_temp"`
	WaterLevel   float64 `json:"water_level"`
	Note         string  `json:"note"`
}

// Statistics carries store-side averages over a bounded window.
type Statistics struct {
	Hours       int     `json:"hours"`
	Samples     int64   `json:"samples"`
	AvgAirTemp  float64 `json:"avg_air_temp"`
	AvgHumidity float64 `json:"avg_humidity"`
	AvgLux      float64 `json:"avg_lux"`
	AvgLeafTemp float64 `json:"avg_leaf_temp"`
}
