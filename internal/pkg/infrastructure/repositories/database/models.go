package database

import "time"

const (
	StatusOn  = "ON"
	StatusOff = "OFF"

	ModeAuto   = "AUTO"
	ModeManual = "MANUAL"
)

type User struct {
	UserID      int       `gorm:"column:user_id;primaryKey" json:"user_id"`
	Username    string    `gorm:"column:username;size:100;uniqueIndex;not null" json:"username"`
	Password    string    `gorm:"column:password;size:255;not null" json:"-"`
	UserType    string    `gorm:"column:user_type;size:50;default:user" json:"user_type"`
	DisplayName string    `gorm:"column:display_name;size:100" json:"display_name"`
	Email       string    `gorm:"column:email;size:150" json:"email"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string { return "users" }

type Plot struct {
	PlotID       int       `gorm:"column:plot_id;primaryKey" json:"plot_id"`
	UserID       int       `gorm:"column:user_id;not null;default:1" json:"user_id"`
	User         *User     `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PlotName     string    `gorm:"column:plot_name;size:100;not null" json:"plot_name"`
	ImagePath    string    `gorm:"column:image_path;size:255;default:''" json:"image_path"`
	PlantType    string    `gorm:"column:plant_type;size:100;default:''" json:"plant_type"`
	PlantingDate time.Time `gorm:"column:planting_date;type:date" json:"planting_date"`
	LeafTemp     float64   `gorm:"column:leaf_temp;type:decimal(5,2);default:0" json:"leaf_temp"`
	WaterLevel   float64   `gorm:"column:water_level;type:decimal(5,2);default:0" json:"water_level"`
	Note         string    `gorm:"column:note;type:text" json:"note"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Plot) TableName() string { return "plots" }

// SensorLog is the canonical time-series table fed by the importer.
// At most one row per (plot_id, timestamp) is enforced in the
// application layer; the schema deliberately carries no composite
// uniqueness constraint.
type SensorLog struct {
	LogID      int64     `gorm:"column:log_id;primaryKey" json:"log_id"`
	PlotID     int       `gorm:"column:plot_id;not null;index" json:"plot_id"`
	Plot       *Plot     `gorm:"foreignKey:PlotID;references:PlotID;constraint:OnDelete:CASCADE" json:"-"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	AirTemp    float64   `gorm:"column:air_temp;type:decimal(5,2);not null" json:"air_temp"`
	Humidity   float64   `gorm:"column:humidity;type:decimal(5,2);not null" json:"humidity"`
	LightLux   float64   `gorm:"column:light_lux;type:decimal(10,2);not null" json:"light_lux"`
	LeafTemp   float64   `gorm:"column:leaf_temp;type:decimal(5,2);not null" json:"leaf_temp"`
	WaterLevel float64   `gorm:"column:water_level;type:decimal(5,2);not null" json:"water_level"`
	CwsiValue  float64   `gorm:"column:cwsi_value;type:decimal(4,3);not null" json:"cwsi_value"`
}

func (SensorLog) TableName() string { return "sensor_logs" }

type StressPrediction struct {
	PredID     int64     `gorm:"column:pred_id;primaryKey" json:"pred_id"`
	PlotID     int       `gorm:"column:plot_id;not null" json:"plot_id"`
	Plot       *Plot     `gorm:"foreignKey:PlotID;references:PlotID;constraint:OnDelete:CASCADE" json:"-"`
	PredTime   time.Time `gorm:"column:pred_time;not null" json:"pred_time"`
	TargetTime time.Time `gorm:"column:target_time;not null;check:chk_time,target_time > pred_time" json:"target_time"`
}

func (StressPrediction) TableName() string { return "stress_predictions" }

type Device struct {
	DeviceID   int       `gorm:"column:device_id;primaryKey" json:"device_id"`
	PlotID     int       `gorm:"column:plot_id;not null;default:1" json:"plot_id"`
	Plot       *Plot     `gorm:"foreignKey:PlotID;references:PlotID;constraint:OnDelete:CASCADE" json:"-"`
	DeviceName string    `gorm:"column:device_name;size:100;not null;index" json:"device_name"`
	DeviceType string    `gorm:"column:device_type;size:30;not null;default:GENERAL" json:"device_type"`
	Status     string    `gorm:"column:status;size:10;not null;default:OFF" json:"status"`
	Mode       string    `gorm:"column:mode;size:10;not null;default:MANUAL" json:"mode"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Device) TableName() string { return "devices" }

// DeviceSchedule is declarative only. Nothing in this service
// evaluates schedules against device state.
type DeviceSchedule struct {
	ScheduleID int     `gorm:"column:schedule_id;primaryKey" json:"schedule_id"`
	DeviceID   int     `gorm:"column:device_id;not null" json:"device_id"`
	Device     *Device `gorm:"foreignKey:DeviceID;references:DeviceID;constraint:OnDelete:CASCADE" json:"-"`
	OnTime     string  `gorm:"column:on_time;type:time;not null" json:"on_time"`
	OffTime    string  `gorm:"column:off_time;type:time;not null" json:"off_time"`
	IsActive   bool    `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

func (DeviceSchedule) TableName() string { return "device_schedules" }

// DeviceLog is an append-only audit trail. Rows are never updated or
// deleted except via cascade when the device goes away.
type DeviceLog struct {
	LogID     int64     `gorm:"column:log_id;primaryKey" json:"log_id"`
	DeviceID  int       `gorm:"column:device_id;not null;index" json:"device_id"`
	Device    *Device   `gorm:"foreignKey:DeviceID;references:DeviceID;constraint:OnDelete:CASCADE" json:"-"`
	Action    string    `gorm:"column:action;size:20" json:"action"`
	Source    string    `gorm:"column:source;size:20" json:"source"`
	OldValue  string    `gorm:"column:old_value;size:50" json:"old_value"`
	NewValue  string    `gorm:"column:new_value;size:50" json:"new_value"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (DeviceLog) TableName() string { return "device_logs" }

// SensorData holds raw unit-pushed readings (the ESP32 write path),
// kept separate from the imported sensor_logs series.
type SensorData struct {
	DataID          int       `gorm:"column:data_id;primaryKey" json:"data_id"`
	DeviceID        int       `gorm:"column:device_id;default:1;index:idx_device_created" json:"device_id"`
	TemperatureAir  float64   `gorm:"column:temperature_air;type:decimal(5,2)" json:"temperature_air"`
	TemperatureLeaf float64   `gorm:"column:temperature_leaf;type:decimal(5,2)" json:"temperature_leaf"`
	Humidity        float64   `gorm:"column:humidity;type:decimal(5,2)" json:"humidity"`
	WaterLevel      float64   `gorm:"column:water_level;type:decimal(5,2)" json:"water_level"`
	LightLux        float64   `gorm:"column:light_lux;type:decimal(10,2)" json:"light_lux"`
	SoilMoisture    float64   `gorm:"column:soil_moisture;type:decimal(5,2)" json:"soil_moisture"`
	CreatedAt       time.Time `gorm:"column:created_at;index:idx_device_created" json:"created_at"`
}

func (SensorData) TableName() string { return "sensor_data" }

type WeatherLog struct {
	ID         int64     `gorm:"column:id;primaryKey" json:"id"`
	PlotID     int       `gorm:"column:plot_id;index" json:"plot_id"`
	Temp       float64   `gorm:"column:temp;type:decimal(5,2)" json:"temp"`
	Humidity   float64   `gorm:"column:humidity;type:decimal(5,2)" json:"humidity"`
	Rainfall   float64   `gorm:"column:rainfall;type:decimal(6,2)" json:"rainfall"`
	WindSpeed  float64   `gorm:"column:wind_speed;type:decimal(5,2)" json:"wind_speed"`
	Condition  string    `gorm:"column:condition;size:50" json:"condition"`
	RecordedAt time.Time `gorm:"column:recorded_at" json:"recorded_at"`
}

func (WeatherLog) TableName() string { return "weather_logs" }

type AlertLog struct {
	ID         int64      `gorm:"column:id;primaryKey" json:"id"`
	PlotID     int        `gorm:"column:plot_id;index" json:"plot_id"`
	AlertType  string     `gorm:"column:alert_type;size:50" json:"alert_type"`
	Severity   string     `gorm:"column:severity;size:20" json:"severity"`
	Message    string     `gorm:"column:message;size:255" json:"message"`
	Resolved   bool       `gorm:"column:resolved;default:false" json:"resolved"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
	ResolvedAt *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}

func (AlertLog) TableName() string { return "alert_logs" }

type MaintenanceSchedule struct {
	ID           int64     `gorm:"column:id;primaryKey" json:"id"`
	DeviceID     int       `gorm:"column:device_id;index" json:"device_id"`
	Task         string    `gorm:"column:task;size:255" json:"task"`
	ScheduledFor time.Time `gorm:"column:scheduled_for" json:"scheduled_for"`
	Completed    bool      `gorm:"column:completed;default:false" json:"completed"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (MaintenanceSchedule) TableName() string { return "maintenance_schedules" }

type CropHealthMetric struct {
	ID         int64     `gorm:"column:id;primaryKey" json:"id"`
	PlotID     int       `gorm:"column:plot_id;index" json:"plot_id"`
	Metric     string    `gorm:"column:metric;size:50" json:"metric"`
	Value      float64   `gorm:"column:value;type:decimal(10,3)" json:"value"`
	MeasuredAt time.Time `gorm:"column:measured_at" json:"measured_at"`
}

func (CropHealthMetric) TableName() string { return "crop_health_metrics" }

type DeviceStatusHistory struct {
	ID         int64     `gorm:"column:id;primaryKey" json:"id"`
	DeviceID   int       `gorm:"column:device_id;index" json:"device_id"`
	Status     string    `gorm:"column:status;size:10" json:"status"`
	Mode       string    `gorm:"column:mode;size:10" json:"mode"`
	RecordedAt time.Time `gorm:"column:recorded_at" json:"recorded_at"`
}

func (DeviceStatusHistory) TableName() string { return "device_status_history" }

type TrashBinLog struct {
	ID        int64     `gorm:"column:id;primaryKey" json:"id"`
	BinTag    string    `gorm:"column:bin_tag;size:50;index" json:"bin_tag"`
	FillLevel float64   `gorm:"column:fill_level;type:decimal(5,2)" json:"fill_level"`
	Collected bool      `gorm:"column:collected;default:false" json:"collected"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (TrashBinLog) TableName() string { return "trash_bin_logs" }
